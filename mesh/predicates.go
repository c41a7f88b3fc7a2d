package mesh

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/spatial/r3"
)

// Relative error bounds of the floating point determinants. Results closer to
// zero than bound*permanent are recomputed exactly.
const (
	orientErrorBound   = 1e-13
	inSphereErrorBound = 1e-12
)

// orient returns the sign of the signed volume of the tetrahedron abcd.
func orient(a, b, c, d r3.Vec) int {
	u, w, x := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)

	det := det3(u, w, x)
	bound := orientErrorBound * permanent3(u, w, x)
	switch {
	case det > bound:
		return 1
	case -det > bound:
		return -1
	}

	ra, rb, rc, rd := newRatVec(a), newRatVec(b), newRatVec(c), newRatVec(d)
	return ratDet3(rb.sub(ra), rc.sub(ra), rd.sub(ra)).Sign()
}

// inSphere reports whether e is strictly inside the circumsphere of the
// non-flat tetrahedron abcd. A point on the sphere is outside.
func inSphere(a, b, c, d, e r3.Vec) bool {
	return inSphereSign(a, b, c, d, e)*orient(a, b, c, d) < 0
}

// inSphereSign returns the sign of the lifted determinant of abcd relative to
// e. It is negative when e is inside the circumsphere of a positively
// oriented tetrahedron.
func inSphereSign(a, b, c, d, e r3.Vec) int {
	ra, rb, rc, rd := r3.Sub(a, e), r3.Sub(b, e), r3.Sub(c, e), r3.Sub(d, e)
	la, lb, lc, ld := r3.Norm2(ra), r3.Norm2(rb), r3.Norm2(rc), r3.Norm2(rd)

	det := -la*det3(rb, rc, rd) +
		lb*det3(ra, rc, rd) -
		lc*det3(ra, rb, rd) +
		ld*det3(ra, rb, rc)

	perm := la*permanent3(rb, rc, rd) +
		lb*permanent3(ra, rc, rd) +
		lc*permanent3(ra, rb, rd) +
		ld*permanent3(ra, rb, rc)

	bound := inSphereErrorBound * perm
	switch {
	case det > bound:
		return 1
	case -det > bound:
		return -1
	}
	return inSphereSignExact(a, b, c, d, e)
}

func inSphereSignExact(a, b, c, d, e r3.Vec) int {
	re := newRatVec(e)
	ra, rb, rc, rd := newRatVec(a).sub(re), newRatVec(b).sub(re), newRatVec(c).sub(re), newRatVec(d).sub(re)
	la, lb, lc, ld := ra.norm2(), rb.norm2(), rc.norm2(), rd.norm2()

	det := new(big.Rat)
	det.Sub(det, new(big.Rat).Mul(la, ratDet3(rb, rc, rd)))
	det.Add(det, new(big.Rat).Mul(lb, ratDet3(ra, rc, rd)))
	det.Sub(det, new(big.Rat).Mul(lc, ratDet3(ra, rb, rd)))
	det.Add(det, new(big.Rat).Mul(ld, ratDet3(ra, rb, rc)))
	return det.Sign()
}

func det3(u, w, x r3.Vec) float64 {
	return r3.Dot(u, r3.Cross(w, x))
}

func permanent3(u, w, x r3.Vec) float64 {
	return math.Abs(u.X)*(math.Abs(w.Y*x.Z)+math.Abs(w.Z*x.Y)) +
		math.Abs(u.Y)*(math.Abs(w.X*x.Z)+math.Abs(w.Z*x.X)) +
		math.Abs(u.Z)*(math.Abs(w.X*x.Y)+math.Abs(w.Y*x.X))
}

type ratVec [3]*big.Rat

func newRatVec(v r3.Vec) ratVec {
	return ratVec{
		new(big.Rat).SetFloat64(v.X),
		new(big.Rat).SetFloat64(v.Y),
		new(big.Rat).SetFloat64(v.Z),
	}
}

func (v ratVec) sub(w ratVec) ratVec {
	return ratVec{
		new(big.Rat).Sub(v[0], w[0]),
		new(big.Rat).Sub(v[1], w[1]),
		new(big.Rat).Sub(v[2], w[2]),
	}
}

func (v ratVec) norm2() *big.Rat {
	n := new(big.Rat)
	for _, c := range v {
		n.Add(n, new(big.Rat).Mul(c, c))
	}
	return n
}

func ratDet3(u, w, x ratVec) *big.Rat {
	minor := func(i, j int) *big.Rat {
		m := new(big.Rat).Mul(w[i], x[j])
		return m.Sub(m, new(big.Rat).Mul(w[j], x[i]))
	}

	det := new(big.Rat).Mul(u[0], minor(1, 2))
	det.Sub(det, new(big.Rat).Mul(u[1], minor(0, 2)))
	return det.Add(det, new(big.Rat).Mul(u[2], minor(0, 1)))
}
