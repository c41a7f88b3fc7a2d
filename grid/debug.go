package grid

import "github.com/aukilabs/tessera/geom"

// DebugInfo describes the layout of an index.
type DebugInfo struct {
	BinSize   float64     `json:"bin_size"`
	NumBins   int         `json:"num_bins"`
	NumBinsX  int         `json:"num_bins_x"`
	NumBinsY  int         `json:"num_bins_y"`
	NumPoints int         `json:"num_points"`
	Origin    geom.Point  `json:"origin"`
	Occupancy []Occupancy `json:"occupancy"`
}

// Occupancy is the number of points held by an occupied cell.
type Occupancy struct {
	Coord Coord `json:"coord"`
	Count int   `json:"count"`
}

func (idx *Index) DebugInfo() DebugInfo {
	info := DebugInfo{
		BinSize:   idx.binSize,
		NumBins:   idx.NumBins(),
		NumBinsX:  idx.numBinsX,
		NumBinsY:  idx.numBinsY,
		NumPoints: len(idx.points),
		Origin:    idx.origin,
		Occupancy: make([]Occupancy, len(idx.coords)),
	}

	for i, c := range idx.coords {
		info.Occupancy[i] = Occupancy{
			Coord: c,
			Count: len(idx.bins[c]),
		}
	}
	return info
}
