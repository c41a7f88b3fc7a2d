package clustering

import (
	"context"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/featureflag"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/protocol"
	"github.com/stretchr/testify/require"
)

type recordSender struct {
	msgs []protocol.Msg
}

func (r *recordSender) Send(req protocol.Msg, data any) {
	msg, err := protocol.NewMsg(req.Type.Response(), req.RequestID, data)
	if err != nil {
		panic(err)
	}
	r.msgs = append(r.msgs, msg)
}

func (r *recordSender) SendMsg(msg protocol.Msg) {
	r.msgs = append(r.msgs, msg)
}

func (r *recordSender) last(t *testing.T) protocol.Msg {
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

func newModule(flags ...string) *Module {
	m := &Module{
		DefaultGridSize: 1,
		FeatureFlags:    featureflag.New(flags),
	}
	m.Init(models.NewClusterSession("test", models.SessionOptions{}))
	return m
}

func newMsg(t *testing.T, msgType protocol.MsgType, data any) protocol.Msg {
	msg, err := protocol.NewMsg(msgType, 1, data)
	require.NoError(t, err)
	return msg
}

var scenarioVertices = []geom.Vertex{
	{X: 0, Y: 0, Z: 0},
	{X: 0.4, Y: 0, Z: 0.4},
	{X: 5, Y: 0, Z: 5},
}

func clusterVertices(t *testing.T, m *Module, respond *recordSender, req protocol.ClusterVerticesRequest) protocol.Msg {
	err := m.HandleMsg(context.Background(), respond, newMsg(t, protocol.MsgTypeClusterVertices, req))
	require.NoError(t, err)
	return respond.last(t)
}

func requireErrorResponse(t *testing.T, msg protocol.Msg, code protocol.ErrorCode) protocol.ErrorResponse {
	require.Equal(t, protocol.MsgTypeError, msg.Type)

	var res protocol.ErrorResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, code, res.Code)
	return res
}

func TestModuleSkipsUnknownMessages(t *testing.T) {
	m := newModule()
	err := m.HandleMsg(context.Background(), &recordSender{}, protocol.Msg{Type: protocol.MsgTypeTriangulate})
	require.True(t, errors.IsType(err, protocol.ErrTypeMsgSkip))
}

func TestHandleClusterVertices(t *testing.T) {
	m := newModule()
	var respond recordSender

	gridSize := 1.0
	msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{
		Vertices: scenarioVertices,
		GridSize: &gridSize,
	})
	require.Equal(t, protocol.MsgTypeClusterVertices.Response(), msg.Type)
	require.Equal(t, uint32(1), msg.RequestID)

	var res protocol.ClusterVerticesResponse
	require.NoError(t, msg.DataTo(&res))
	require.False(t, res.CacheHit)
	require.Len(t, res.Clusters, 2)
	require.Equal(t, "cluster_0_0", res.Clusters[0].ID)
	require.Equal(t, "cluster_5_5", res.Clusters[1].ID)
	require.Len(t, res.ClusterRectangles, 2)
	require.Equal(t, 2, res.ClusterRectangles[0].VertexCount)
	require.Equal(t, 2, res.Stats.TotalClusters)
	require.Equal(t, 3, res.Stats.TotalVertices)

	t.Run("same grid size reuses index", func(t *testing.T) {
		msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{
			Vertices: scenarioVertices[:1],
			GridSize: &gridSize,
		})

		var res protocol.ClusterVerticesResponse
		require.NoError(t, msg.DataTo(&res))
		require.True(t, res.CacheHit)
		require.Len(t, res.Clusters, 2)
	})
}

func TestHandleClusterVerticesDefaultGridSize(t *testing.T) {
	m := newModule()
	m.DefaultGridSize = 10
	var respond recordSender

	msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{
		Vertices: scenarioVertices,
	})

	var res protocol.ClusterVerticesResponse
	require.NoError(t, msg.DataTo(&res))
	require.Len(t, res.Clusters, 1)
	require.Len(t, res.Clusters[0].Vertices, 3)
}

func TestHandleClusterVerticesInvalidGridSize(t *testing.T) {
	m := newModule()
	var respond recordSender

	gridSize := 0.0
	msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{
		Vertices: scenarioVertices,
		GridSize: &gridSize,
	})
	requireErrorResponse(t, msg, protocol.ErrorCodeInvalidParameter)
}

func TestHandleClusterVerticesWithoutRectangles(t *testing.T) {
	m := newModule(string(featureflag.FlagDisableClusterRectangles))
	var respond recordSender

	msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{
		Vertices: scenarioVertices,
	})

	var res protocol.ClusterVerticesResponse
	require.NoError(t, msg.DataTo(&res))
	require.Len(t, res.Clusters, 2)
	require.Empty(t, res.ClusterRectangles)
}

func TestHandleClusterVerticesBadPayload(t *testing.T) {
	m := newModule()
	err := m.HandleMsg(context.Background(), &recordSender{}, protocol.Msg{
		Type: protocol.MsgTypeClusterVertices,
		Data: []byte(`{"vertices": "nope"}`),
	})
	require.True(t, errors.IsType(err, protocol.ErrTypeMsgDecode))
}

func TestHandleWithoutSession(t *testing.T) {
	m := &Module{DefaultGridSize: 1}
	err := m.HandleMsg(context.Background(), &recordSender{}, protocol.Msg{Type: protocol.MsgTypeClusterVertices})
	require.True(t, errors.IsType(err, protocol.ErrTypeSessionNotJoined))

	err = m.HandleMsg(context.Background(), &recordSender{}, protocol.Msg{Type: protocol.MsgTypeSimplifyClusters})
	require.True(t, errors.IsType(err, protocol.ErrTypeSessionNotJoined))
}

func simplifyClusters(t *testing.T, m *Module, respond *recordSender, req protocol.SimplifyClustersRequest) protocol.Msg {
	err := m.HandleMsg(context.Background(), respond, newMsg(t, protocol.MsgTypeSimplifyClusters, req))
	require.NoError(t, err)
	return respond.last(t)
}

func TestHandleSimplifyClusters(t *testing.T) {
	t.Run("no clusters", func(t *testing.T) {
		var respond recordSender
		msg := simplifyClusters(t, newModule(), &respond, protocol.SimplifyClustersRequest{})

		res := requireErrorResponse(t, msg, protocol.ErrorCodeEmptyInput)
		require.Equal(t, "No clusters provided for simplification", res.Message)
	})

	t.Run("no clusterer available", func(t *testing.T) {
		var respond recordSender
		msg := simplifyClusters(t, newModule(), &respond, protocol.SimplifyClustersRequest{
			Clusters: []cluster.Cluster{{ID: "cluster_0_0", Vertices: scenarioVertices[:1]}},
		})
		requireErrorResponse(t, msg, protocol.ErrorCodeNoClustererAvailable)
	})

	t.Run("session index", func(t *testing.T) {
		m := newModule()
		var respond recordSender

		msg := clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{Vertices: scenarioVertices})
		var clustered protocol.ClusterVerticesResponse
		require.NoError(t, msg.DataTo(&clustered))

		msg = simplifyClusters(t, m, &respond, protocol.SimplifyClustersRequest{
			Clusters: clustered.Clusters,
			Mode:     protocol.SimplifyModeSession,
		})
		require.Equal(t, protocol.MsgTypeSimplifyClusters.Response(), msg.Type)

		var res protocol.SimplifyClustersResponse
		require.NoError(t, msg.DataTo(&res))
		require.Len(t, res.SimplifiedVertices, 2)
		require.InDelta(t, 0.2, res.SimplifiedVertices[0].X, 1e-9)
		require.InDelta(t, 0.2, res.SimplifiedVertices[0].Z, 1e-9)
		require.Zero(t, res.SimplifiedVertices[0].Y)
		require.Equal(t, []float64{2, 1}, res.Weights)
		require.Empty(t, res.SkippedClusterIDs)
	})

	t.Run("session index without weights", func(t *testing.T) {
		m := newModule(string(featureflag.FlagDisableSimplifyWeights))
		var respond recordSender

		clusterVertices(t, m, &respond, protocol.ClusterVerticesRequest{Vertices: scenarioVertices})
		msg := simplifyClusters(t, m, &respond, protocol.SimplifyClustersRequest{
			Clusters: []cluster.Cluster{{ID: "cluster_0_0"}},
		})

		var res protocol.SimplifyClustersResponse
		require.NoError(t, msg.DataTo(&res))
		require.Len(t, res.SimplifiedVertices, 2)
		require.Empty(t, res.Weights)
	})

	t.Run("given clusters", func(t *testing.T) {
		var respond recordSender
		msg := simplifyClusters(t, newModule(), &respond, protocol.SimplifyClustersRequest{
			Mode: protocol.SimplifyModeClusters,
			Clusters: []cluster.Cluster{
				{ID: "cluster_0_0", Vertices: []geom.Vertex{{X: 1, Z: 1}, {X: 3, Z: 3}}},
				{ID: "cluster_1_1"},
				{ID: "cluster_2_2", Vertices: []geom.Vertex{{X: 5, Z: 6}}},
			},
		})

		var res protocol.SimplifyClustersResponse
		require.NoError(t, msg.DataTo(&res))
		require.Equal(t, []geom.Vertex{{X: 2, Z: 2}, {X: 5, Z: 6}}, res.SimplifiedVertices)
		require.Equal(t, []string{"cluster_1_1"}, res.SkippedClusterIDs)
	})

	t.Run("unknown mode", func(t *testing.T) {
		var respond recordSender
		msg := simplifyClusters(t, newModule(), &respond, protocol.SimplifyClustersRequest{
			Mode:     "median",
			Clusters: []cluster.Cluster{{ID: "cluster_0_0", Vertices: scenarioVertices[:1]}},
		})

		res := requireErrorResponse(t, msg, protocol.ErrorCodeBadRequest)
		require.Contains(t, res.Message, "median")
	})
}
