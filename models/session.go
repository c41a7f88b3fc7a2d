package models

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/tessera/cluster"
	"github.com/aukilabs/tessera/geom"
	"github.com/aukilabs/tessera/grid"
	"github.com/aukilabs/tessera/simplify"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	ErrTypeNoClustererAvailable = "no-clusterer-available"

	// DefaultBinSize is the bin size of a session that never clustered.
	DefaultBinSize = 1.0
)

// SessionOptions configures a cluster session.
type SessionOptions struct {
	// The bin size reported before the first clustering.
	DefaultBinSize float64

	// Rebuild the index when the clustered vertices change, even if the bin
	// size did not.
	InvalidateOnVertexChange bool
}

// ClusterSession holds the grid index built by the last clustering request so
// that later requests can reuse it.
type ClusterSession struct {
	ID        string
	CreatedAt time.Time

	invalidateOnVertexChange bool

	mutex       sync.Mutex
	index       *grid.Index
	binSize     float64
	fingerprint common.Hash
}

func NewClusterSession(id string, opts SessionOptions) *ClusterSession {
	binSize := opts.DefaultBinSize
	if !geom.IsFinite(binSize) || binSize <= 0 {
		binSize = DefaultBinSize
	}

	return &ClusterSession{
		ID:                       id,
		CreatedAt:                time.Now(),
		invalidateOnVertexChange: opts.InvalidateOnVertexChange,
		binSize:                  binSize,
	}
}

// Cluster groups the vertices by grid cell. The index is rebuilt when none
// exists or when binSize differs from the cached one, otherwise the cached
// index is reused as is. The returned bool reports whether the cached index
// was reused.
func (s *ClusterSession) Cluster(vertices []geom.Vertex, binSize float64) ([]cluster.Cluster, bool, error) {
	if !geom.IsFinite(binSize) || binSize <= 0 {
		return nil, false, errors.New("grid size must be a positive number").
			WithType(grid.ErrTypeInvalidParameter).
			WithTag("grid_size", binSize)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var fingerprint common.Hash
	if s.invalidateOnVertexChange {
		fingerprint = geom.Fingerprint(vertices)
	}

	cacheHit := s.index != nil &&
		s.binSize == binSize &&
		s.fingerprint == fingerprint

	if !cacheHit {
		start := time.Now()

		logs.WithTag("session_id", s.ID).
			WithTag("vertices", len(vertices)).
			WithTag("grid_size", binSize).
			Debug("building grid index")

		idx, err := grid.Build(geom.ProjectAll(vertices), binSize)
		if err != nil {
			return nil, false, err
		}

		s.index = idx
		s.binSize = binSize
		s.fingerprint = fingerprint
		instrumentIndexBuild(time.Since(start))
	}
	instrumentClusterCache(cacheHit)

	clusters := cluster.Build(s.index)

	logs.WithTag("session_id", s.ID).
		WithTag("grid_size", binSize).
		WithTag("bins", s.index.NumBins()).
		WithTag("bins_x", s.index.NumBinsX()).
		WithTag("bins_y", s.index.NumBinsY()).
		WithTag("clusters", len(clusters)).
		WithTag("cache_hit", cacheHit).
		Debug("clustering complete")

	return clusters, cacheHit, nil
}

// SimplifyCached reduces every bin of the cached index to its representative
// vertex.
func (s *ClusterSession) SimplifyCached() ([]geom.Vertex, []float64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.index == nil {
		return nil, nil, errors.New("no clusterer available").
			WithType(ErrTypeNoClustererAvailable).
			WithTag("session_id", s.ID)
	}

	points, weights, err := simplify.Simplify(s.index)
	if err != nil {
		return nil, nil, err
	}
	return geom.EmbedAll(points), weights, nil
}

// Clusters returns the clusters of the cached index.
func (s *ClusterSession) Clusters() ([]cluster.Cluster, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.index == nil {
		return nil, errors.New("no clusterer available").
			WithType(ErrTypeNoClustererAvailable).
			WithTag("session_id", s.ID)
	}
	return cluster.Build(s.index), nil
}

// DebugInfo describes the cached index.
func (s *ClusterSession) DebugInfo() (grid.DebugInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.index == nil {
		return grid.DebugInfo{}, errors.New("no clusterer available").
			WithType(ErrTypeNoClustererAvailable).
			WithTag("session_id", s.ID)
	}
	return s.index.DebugInfo(), nil
}

// BinSize returns the bin size of the cached index, or the default bin size
// when nothing was clustered yet.
func (s *ClusterSession) BinSize() float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.binSize
}

// Populated reports whether the session holds an index.
func (s *ClusterSession) Populated() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.index != nil
}

// Reset drops the cached index.
func (s *ClusterSession) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.index = nil
	s.fingerprint = common.Hash{}
}

// SessionStore holds the cluster sessions of the server.
type SessionStore struct {
	// Options applied to every session created by the store.
	SessionOptions SessionOptions

	initOnce       sync.Once
	mutex          sync.RWMutex
	sessions       map[string]*ClusterSession
	defaultSession *ClusterSession
}

func (s *SessionStore) init() {
	s.sessions = map[string]*ClusterSession{}
}

// New creates and registers a session with a random id.
func (s *SessionStore) New() *ClusterSession {
	s.initOnce.Do(s.init)

	session := NewClusterSession(uuid.NewString(), s.SessionOptions)
	s.Add(session)
	return session
}

func (s *SessionStore) Add(session *ClusterSession) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return
	}
	s.sessions[session.ID] = session

	instrumentIncreaseSessionGauge()
	instrumentCountSession()
}

// Default returns the session shared by clients that never joined a specific
// one. It is created on first use.
func (s *SessionStore) Default() *ClusterSession {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	session := s.defaultSession
	s.mutex.RUnlock()
	if session != nil {
		return session
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.defaultSession == nil {
		s.defaultSession = NewClusterSession(uuid.NewString(), s.SessionOptions)
		s.sessions[s.defaultSession.ID] = s.defaultSession

		instrumentIncreaseSessionGauge()
		instrumentCountSession()
	}
	return s.defaultSession
}

func (s *SessionStore) Get(id string) (*ClusterSession, bool) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Remove(id string) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}

	delete(s.sessions, id)
	if session == s.defaultSession {
		s.defaultSession = nil
	}

	instrumentDecreaseSessionGauge()
}

func (s *SessionStore) Len() int {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}
