package models

import (
	"math"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/grid"
	"github.com/aukilabs/tessera/simplify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioVertices() []geom.Vertex {
	return []geom.Vertex{
		{X: 0, Y: 0, Z: 0},
		{X: 0.4, Y: 0, Z: 0.4},
		{X: 5, Y: 0, Z: 5},
	}
}

func TestNewClusterSession(t *testing.T) {
	t.Run("default bin size", func(t *testing.T) {
		s := NewClusterSession("test", SessionOptions{})
		require.Equal(t, DefaultBinSize, s.BinSize())
		require.False(t, s.Populated())
	})

	t.Run("configured bin size", func(t *testing.T) {
		s := NewClusterSession("test", SessionOptions{DefaultBinSize: 0.25})
		require.Equal(t, 0.25, s.BinSize())
	})
}

func TestClusterSessionCluster(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	clusters, cacheHit, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Len(t, clusters, 2)
	require.Equal(t, "cluster_0_0", clusters[0].ID)
	require.Len(t, clusters[0].Vertices, 2)
	require.Equal(t, "cluster_5_5", clusters[1].ID)
	require.True(t, s.Populated())
	require.Equal(t, 1.0, s.BinSize())

	vertices, weights, err := s.SimplifyCached()
	require.NoError(t, err)
	require.Len(t, vertices, 2)
	require.Equal(t, []float64{2, 1}, weights)
	require.InDelta(t, 0.2, vertices[0].X, 1e-12)
	require.Equal(t, 0.0, vertices[0].Y)
	require.InDelta(t, 0.2, vertices[0].Z, 1e-12)
	require.Equal(t, geom.Vertex{X: 5, Y: 0, Z: 5}, vertices[1])
}

func TestClusterSessionInvalidBinSize(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})
	_, _, err := s.Cluster(scenarioVertices(), 2)
	require.NoError(t, err)

	for _, binSize := range []float64{0, -1, math.NaN()} {
		clusters, cacheHit, err := s.Cluster(scenarioVertices(), binSize)
		require.Error(t, err)
		require.True(t, errors.IsType(err, grid.ErrTypeInvalidParameter))
		require.Nil(t, clusters)
		require.False(t, cacheHit)
	}

	require.True(t, s.Populated())
	require.Equal(t, 2.0, s.BinSize())
}

func TestClusterSessionInvalidVertices(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	_, _, err := s.Cluster([]geom.Vertex{{X: math.Inf(1)}}, 1)
	require.Error(t, err)
	require.True(t, errors.IsType(err, grid.ErrTypeInvalidParameter))
	require.False(t, s.Populated())
}

func TestClusterSessionReusesIndexForSameBinSize(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	first, cacheHit, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)
	require.False(t, cacheHit)

	// A different vertex set with the same bin size is answered from the
	// cached index.
	second, cacheHit, err := s.Cluster([]geom.Vertex{{X: 42, Z: 42}}, 1)
	require.NoError(t, err)
	require.True(t, cacheHit)
	require.Equal(t, first, second)
}

func TestClusterSessionRebuildsOnBinSizeChange(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	_, _, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)

	clusters, cacheHit, err := s.Cluster(scenarioVertices(), 10)
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Vertices, 3)
	require.Equal(t, 10.0, s.BinSize())
}

func TestClusterSessionInvalidateOnVertexChange(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{InvalidateOnVertexChange: true})

	_, _, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)

	_, cacheHit, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)
	require.True(t, cacheHit)

	clusters, cacheHit, err := s.Cluster([]geom.Vertex{{X: 42, Z: 42}}, 1)
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Len(t, clusters, 1)
	require.Equal(t, "cluster_0_0", clusters[0].ID)
}

func TestClusterSessionSimplifyWithoutClusterer(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	_, _, err := s.SimplifyCached()
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeNoClustererAvailable))

	_, err = s.Clusters()
	require.True(t, errors.IsType(err, ErrTypeNoClustererAvailable))

	_, err = s.DebugInfo()
	require.True(t, errors.IsType(err, ErrTypeNoClustererAvailable))
}

func TestClusterSessionSimplifyEmptyIndex(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	clusters, _, err := s.Cluster(nil, 1)
	require.NoError(t, err)
	require.Empty(t, clusters)

	_, _, err = s.SimplifyCached()
	require.Error(t, err)
	require.True(t, errors.IsType(err, simplify.ErrTypeEmptyInput))
}

func TestClusterSessionClustersAndDebugInfo(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	expected, _, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)

	clusters, err := s.Clusters()
	require.NoError(t, err)
	require.Equal(t, expected, clusters)

	info, err := s.DebugInfo()
	require.NoError(t, err)
	require.Equal(t, 2, info.NumBins)
	require.Equal(t, 3, info.NumPoints)
}

func TestClusterSessionReset(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	_, _, err := s.Cluster(scenarioVertices(), 1)
	require.NoError(t, err)

	s.Reset()
	require.False(t, s.Populated())

	_, _, err = s.SimplifyCached()
	require.True(t, errors.IsType(err, ErrTypeNoClustererAvailable))
}

func TestClusterSessionConcurrentAccess(t *testing.T) {
	s := NewClusterSession("test", SessionOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			binSize := float64(i%2 + 1)
			clusters, _, err := s.Cluster(scenarioVertices(), binSize)
			assert.NoError(t, err)
			assert.NotEmpty(t, clusters)

			_, _, err = s.SimplifyCached()
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestSessionStore(t *testing.T) {
	var store SessionStore

	t.Run("default session is created once", func(t *testing.T) {
		a := store.Default()
		b := store.Default()
		require.Same(t, a, b)

		s, ok := store.Get(a.ID)
		require.True(t, ok)
		require.Same(t, a, s)
	})

	t.Run("new session", func(t *testing.T) {
		s := store.New()
		require.NotEmpty(t, s.ID)
		require.NotEqual(t, store.Default().ID, s.ID)

		got, ok := store.Get(s.ID)
		require.True(t, ok)
		require.Same(t, s, got)
		require.Equal(t, 2, store.Len())
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a := store.New()
		b := store.New()

		_, _, err := a.Cluster(scenarioVertices(), 1)
		require.NoError(t, err)
		require.True(t, a.Populated())
		require.False(t, b.Populated())
	})

	t.Run("remove", func(t *testing.T) {
		s := store.New()
		store.Remove(s.ID)

		_, ok := store.Get(s.ID)
		require.False(t, ok)

		def := store.Default()
		store.Remove(def.ID)
		require.NotSame(t, def, store.Default())
	})

	t.Run("get unknown session", func(t *testing.T) {
		_, ok := store.Get("unknown")
		require.False(t, ok)
	})
}

func TestSessionStoreAppliesOptions(t *testing.T) {
	store := SessionStore{
		SessionOptions: SessionOptions{DefaultBinSize: 0.5},
	}
	require.Equal(t, 0.5, store.New().BinSize())
	require.Equal(t, 0.5, store.Default().BinSize())
}
