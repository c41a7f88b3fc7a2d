package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/grid"
	"github.com/aukilabs/tessera/models"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HandleOccupancyChart renders the bin occupancy of a session grid index as
// an HTML scatter chart. The session is given by the session_id query
// parameter and defaults to the shared session.
func HandleOccupancyChart(sessions *models.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessions.Default()
		if id := r.URL.Query().Get("session_id"); id != "" {
			s, ok := sessions.Get(id)
			if !ok {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			session = s
		}

		info, err := session.DebugInfo()
		if errors.IsType(err, models.ErrTypeNoClustererAvailable) {
			http.Error(w, "session has no grid index", http.StatusNotFound)
			return
		}
		if err != nil {
			httpcmn.InternalServerError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := occupancyChart(session.ID, info).Render(&buf); err != nil {
			httpcmn.InternalServerError(w, errors.New("rendering chart failed").Wrap(err))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func occupancyChart(sessionID string, info grid.DebugInfo) *charts.Scatter {
	data := make([]opts.ScatterData, len(info.Occupancy))
	maxCount := 1
	for i, o := range info.Occupancy {
		x := info.Origin.X + (float64(o.Coord.X)+0.5)*info.BinSize
		z := info.Origin.Y + (float64(o.Coord.Y)+0.5)*info.BinSize
		data[i] = opts.ScatterData{
			Name:  cluster.ID(o.Coord),
			Value: []interface{}{x, z, o.Count},
		}
		maxCount = max(maxCount, o.Count)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Grid Occupancy", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Grid Occupancy",
			Subtitle: fmt.Sprintf("session=%s bins=%d points=%d bin_size=%g",
				sessionID, info.NumBins, info.NumPoints, info.BinSize),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Z", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			Dimension:  "2",
		}),
	)
	scatter.AddSeries("occupancy", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
