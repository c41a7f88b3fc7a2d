// Package clustering implements the module that groups vertices into grid
// clusters and reduces clusters to representative vertices.
package clustering

import (
	"context"
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/featureflag"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/protocol"
	"github.com/aukilabs/tessera/simplify"
)

const (
	msgNoClusters = "No clusters provided for simplification"
)

type Module struct {
	// The grid size used when a request does not specify one.
	DefaultGridSize float64

	FeatureFlags featureflag.FeatureFlag

	currentSession *models.ClusterSession
}

func (m *Module) Name() string {
	return "clustering"
}

func (m *Module) Init(s *models.ClusterSession) {
	m.currentSession = s
}

func (m *Module) HandleMsg(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var err error

	switch msg.Type {
	case protocol.MsgTypeClusterVertices:
		err = m.HandleClusterVertices(ctx, respond, msg)

	case protocol.MsgTypeSimplifyClusters:
		err = m.HandleSimplifyClusters(ctx, respond, msg)

	default:
		err = protocol.ErrModuleMsgSkip
	}

	return err
}

func (m *Module) HandleDisconnect() {
}

func (m *Module) HandleClusterVertices(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.ClusterVerticesRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session, err := m.session(msg)
	if err != nil {
		return err
	}

	gridSize := m.DefaultGridSize
	if req.GridSize != nil {
		gridSize = *req.GridSize
	}

	logs.WithTag("session_id", session.ID).
		WithTag("vertices", len(req.Vertices)).
		WithTag("grid_size", gridSize).
		Info("clustering vertices")

	clusters, cacheHit, err := session.Cluster(req.Vertices, gridSize)
	if err != nil {
		logs.WithTag("session_id", session.ID).
			WithTag("grid_size", gridSize).
			Warn(errors.New("clustering vertices failed").Wrap(err))
		instrumentFailure(msg.Type, err)
		protocol.SendError(respond, msg, err)
		return nil
	}

	res := protocol.ClusterVerticesResponse{
		Clusters:          clusters,
		ClusterRectangles: []cluster.Rectangle{},
		Stats:             cluster.ComputeStats(clusters),
		CacheHit:          cacheHit,
	}
	m.FeatureFlags.IfNotSet(featureflag.FlagDisableClusterRectangles, func() {
		res.ClusterRectangles = cluster.Rectangles(clusters)
	})

	logs.WithTag("session_id", session.ID).
		WithTag("grid_size", gridSize).
		WithTag("clusters", res.Stats.TotalClusters).
		WithTag("vertices", res.Stats.TotalVertices).
		WithTag("cache_hit", cacheHit).
		Info("clustering vertices complete")

	respond.Send(msg, res)
	return nil
}

func (m *Module) HandleSimplifyClusters(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.SimplifyClustersRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session, err := m.session(msg)
	if err != nil {
		return err
	}

	if len(req.Clusters) == 0 {
		instrumentFailure(msg.Type, errors.New(msgNoClusters).WithType(simplify.ErrTypeEmptyInput))
		protocol.SendErrorMessage(respond, msg, protocol.ErrorCodeEmptyInput, msgNoClusters)
		return nil
	}

	logs.WithTag("session_id", session.ID).
		WithTag("clusters", len(req.Clusters)).
		WithTag("mode", req.Mode).
		Info("simplifying clusters")

	var res protocol.SimplifyClustersResponse

	switch req.Mode {
	case "", protocol.SimplifyModeSession:
		vertices, weights, err := session.SimplifyCached()
		if err != nil {
			logs.WithTag("session_id", session.ID).
				Warn(errors.New("simplifying clusters failed").Wrap(err))
			instrumentFailure(msg.Type, err)
			protocol.SendError(respond, msg, err)
			return nil
		}

		res.SimplifiedVertices = vertices
		m.FeatureFlags.IfNotSet(featureflag.FlagDisableSimplifyWeights, func() {
			res.Weights = weights
		})

	case protocol.SimplifyModeClusters:
		vertices, skipped := simplify.SimplifyClusters(req.Clusters)
		instrumentSkippedClusters(len(skipped))

		res.SimplifiedVertices = vertices
		res.SkippedClusterIDs = skipped

	default:
		err := errors.New("unknown simplification mode").
			WithType(protocol.ErrTypeBadRequest).
			WithTag("mode", req.Mode)
		instrumentFailure(msg.Type, err)
		protocol.SendErrorMessage(respond, msg, protocol.ErrorCodeBadRequest,
			fmt.Sprintf("Unknown simplification mode %q.", req.Mode))
		return nil
	}

	logs.WithTag("session_id", session.ID).
		WithTag("simplified_vertices", len(res.SimplifiedVertices)).
		WithTag("skipped_clusters", len(res.SkippedClusterIDs)).
		Info("simplifying clusters complete")

	respond.Send(msg, res)
	return nil
}

func (m *Module) session(msg protocol.Msg) (*models.ClusterSession, error) {
	if m.currentSession == nil {
		return nil, errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}
	return m.currentSession, nil
}
