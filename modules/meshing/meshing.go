package meshing

import (
	"context"
	"math/rand"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/mesh"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/protocol"
)

type Module struct {
	// The tolerance used when a request does not specify one.
	Epsilon float64

	// The source of generated vertices. Seeded with the current time when
	// nil.
	Rand *rand.Rand

	currentSession *models.ClusterSession
}

func (m *Module) Name() string {
	return "meshing"
}

func (m *Module) Init(s *models.ClusterSession) {
	m.currentSession = s

	if m.Rand == nil {
		m.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

func (m *Module) HandleMsg(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var err error

	switch msg.Type {
	case protocol.MsgTypeTriangulate:
		err = m.HandleTriangulate(ctx, respond, msg)

	case protocol.MsgTypeTetrahedralize:
		err = m.HandleTetrahedralize(ctx, respond, msg)

	case protocol.MsgTypeLift:
		err = m.HandleLift(ctx, respond, msg)

	case protocol.MsgTypeGenerateVertices:
		err = m.HandleGenerateVertices(ctx, respond, msg)

	default:
		err = protocol.ErrModuleMsgSkip
	}

	return err
}

func (m *Module) HandleDisconnect() {
}

func (m *Module) HandleTriangulate(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.TriangulateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	logs.WithTag("vertices", len(req.Vertices)).
		WithTag("session_id", m.sessionID()).
		Info("triangulating vertices")

	res := protocol.TriangulateResponse{
		Triangles: []geom.Triangle{},
		Vertices:  []geom.Vertex{},
	}

	t := mesh.NewTriangulation(m.epsilon(req.Epsilon))
	if err := t.InsertVertices(geom.ProjectAll(req.Vertices), 0, true); err != nil {
		logs.Error(errors.New("inserting vertices failed").Wrap(err))
		instrumentMeshFailure(msg.Type)
		respond.Send(msg, res)
		return nil
	}

	for _, tri := range t.Tris() {
		res.Triangles = append(res.Triangles, geom.Triangle{
			A: geom.Embed(tri[0]),
			B: geom.Embed(tri[1]),
			C: geom.Embed(tri[2]),
		})
	}
	res.Vertices = geom.EmbedAll(t.Vertices())

	logs.WithTag("triangles", t.NumTris()).
		WithTag("vertices", len(res.Vertices)).
		Info("triangulation complete")

	respond.Send(msg, res)
	return nil
}

func (m *Module) HandleTetrahedralize(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.TetrahedralizeRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	logs.WithTag("vertices", len(req.Vertices)).
		WithTag("session_id", m.sessionID()).
		Info("tetrahedralizing vertices")

	res := protocol.TetrahedralizeResponse{
		Tetrahedra: []geom.Tetrahedron{},
		Vertices:   []geom.Vertex{},
	}

	t := mesh.NewTetrahedralization(m.epsilon(req.Epsilon))
	if err := t.InsertVertices(req.Vertices, 0, true); err != nil {
		logs.Error(errors.New("inserting vertices failed").Wrap(err))
		instrumentMeshFailure(msg.Type)
		respond.Send(msg, res)
		return nil
	}

	for _, tet := range t.Tets() {
		res.Tetrahedra = append(res.Tetrahedra, geom.Tetrahedron{
			A: tet[0],
			B: tet[1],
			C: tet[2],
			D: tet[3],
		})
	}
	res.Vertices = t.Vertices()

	logs.WithTag("tetrahedra", t.NumTets()).
		WithTag("vertices", len(res.Vertices)).
		Info("tetrahedralization complete")

	respond.Send(msg, res)
	return nil
}

func (m *Module) HandleLift(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.LiftRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	res := protocol.LiftResponse{
		Vertices:  make([]geom.Vertex, len(req.Vertices)),
		Triangles: make([]geom.Triangle, len(req.Triangles)),
	}
	for i, v := range req.Vertices {
		res.Vertices[i] = geom.Lift(v)
	}
	for i, t := range req.Triangles {
		res.Triangles[i] = geom.LiftTriangle(t)
	}

	logs.WithTag("vertices", len(res.Vertices)).
		WithTag("triangles", len(res.Triangles)).
		Debug("lift complete")

	respond.Send(msg, res)
	return nil
}

func (m *Module) HandleGenerateVertices(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.GenerateVerticesRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	dim := mesh.Dimension(req.Dimension)
	if !dim.Valid() {
		protocol.SendErrorMessage(respond, msg, protocol.ErrorCodeBadRequest,
			"Dimension must be TWO or THREE.")
		return nil
	}

	vertices := mesh.RandomVertices(m.Rand, req.Count, dim)

	logs.WithTag("vertices", len(vertices)).
		WithTag("dimension", dim).
		Debug("vertices generated")

	respond.Send(msg, protocol.GenerateVerticesResponse{
		Vertices: vertices,
	})
	return nil
}

func (m *Module) epsilon(requested float64) float64 {
	if geom.IsFinite(requested) && requested > 0 {
		return requested
	}
	return m.Epsilon
}

func (m *Module) sessionID() string {
	if m.currentSession == nil {
		return ""
	}
	return m.currentSession.ID
}
