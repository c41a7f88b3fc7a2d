package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/models"
)

const (
	geoJSONContentType = "application/geo+json"
)

// HandleSessionClusters exports the clusters of the session named by the id
// path value as a GeoJSON feature collection on the (x, z) plane.
func HandleSessionClusters(sessions *models.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
			return
		}

		session, ok := sessions.Get(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		clusters, err := session.Clusters()
		if errors.IsType(err, models.ErrTypeNoClustererAvailable) {
			http.Error(w, "session has no clusters", http.StatusNotFound)
			return
		}
		if err != nil {
			httpcmn.InternalServerError(w, err)
			return
		}

		b, err := cluster.FeatureCollection(clusters).MarshalJSON()
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("encoding geojson failed").Wrap(err))
			return
		}

		logs.WithTag("session_id", id).
			WithTag("clusters", len(clusters)).
			Debug("clusters exported")

		w.Header().Set("Content-Type", geoJSONContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}
