package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/tessera/featureflag"
	"github.com/aukilabs/tessera/geom"
	tesserahttp "github.com/aukilabs/tessera/http"
	"github.com/aukilabs/tessera/mesh"
	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/modules"
	"github.com/aukilabs/tessera/modules/clustering"
	"github.com/aukilabs/tessera/modules/meshing"
	"github.com/aukilabs/tessera/smoketest"
	twebsocket "github.com/aukilabs/tessera/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Tessera version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "tessera_info",
		Help:        "Tessera information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"TESSERA_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"TESSERA_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"TESSERA_PUBLIC_ENDPOINT"      help:"The public endpoint where this Tessera server is reachable."`
	LogLevel           string        `cli:""        env:"TESSERA_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"TESSERA_LOG_INDENT"           help:"Indent logs."`
	DefaultGridSize    float64       `cli:""        env:"TESSERA_DEFAULT_GRID_SIZE"    help:"The grid bin size used when a request does not specify one."`
	MeshEpsilon        float64       `cli:",hidden" env:"TESSERA_MESH_EPSILON"         help:"The meshing tolerance used when a request does not specify one."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"TESSERA_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"TESSERA_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"TESSERA_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"TESSERA_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"TESSERA_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"TESSERA_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"TESSERA_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		DefaultGridSize:    models.DefaultBinSize,
		MeshEpsilon:        mesh.DefaultEpsilon,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Tessera server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "tessera",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	sessions := models.SessionStore{
		SessionOptions: models.SessionOptions{
			DefaultBinSize:           conf.DefaultGridSize,
			InvalidateOnVertexChange: featureFlags.IsSet(featureflag.FlagInvalidateOnVertexChange),
		},
	}

	newModules := func() []modules.Module {
		m := []modules.Module{
			&clustering.Module{
				DefaultGridSize: conf.DefaultGridSize,
				FeatureFlags:    featureFlags,
			},
		}
		featureFlags.IfNotSet(featureflag.FlagDisableMeshing, func() {
			m = append(m, &meshing.Module{
				Epsilon: conf.MeshEpsilon,
			})
		})
		return m
	}

	var ready atomic.Bool
	readinessCheck := ready.Load

	var service http.ServeMux

	service.Handle("/", tesserahttp.HandleWithCORS(websocket.Server{
		// Clients without an origin are accepted.
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh twebsocket.Handler = &twebsocket.RealtimeHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Sessions:          &sessions,
				Modules:           newModules(),
			}
			h := twebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = twebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			twebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	service.Handle("/health", tesserahttp.HandleWithCORS(http.HandlerFunc(tesserahttp.HandleHealthCheck)))
	service.Handle("/version", tesserahttp.HandleWithCORS(tesserahttp.HandleVersion(version)))
	service.Handle("/ready", tesserahttp.HandleWithCORS(tesserahttp.HandleReadyCheck(readinessCheck)))
	service.Handle("GET /sessions/{id}/clusters.geojson", tesserahttp.HandleWithCORS(tesserahttp.HandleSessionClusters(&sessions)))

	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("Tessera %s", version),
		SendResult: func(ctx context.Context, res smoketest.Results) error {
			logs.WithTag("from_endpoint", res.FromEndpoint).
				WithTag("to_endpoint", res.ToEndpoint).
				WithTag("status", res.Status).
				WithTag("latency_ms", res.LatencyMilliSec).
				WithTag("clusters", res.Clusters).
				Info("smoke test completed")
			return nil
		},
	}))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", tesserahttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/debug/occupancy", tesserahttp.HandleOccupancyChart(&sessions))
	admin.HandleFunc("/ready", tesserahttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("default_grid_size", conf.DefaultGridSize).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting tessera server")

	ready.Store(true)
	tesserahttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			tesserahttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if !geom.IsFinite(conf.DefaultGridSize) || conf.DefaultGridSize <= 0 {
		return errors.New("default grid size must be a positive number").
			WithTag("default_grid_size", conf.DefaultGridSize)
	}

	if !geom.IsFinite(conf.MeshEpsilon) || conf.MeshEpsilon < 0 {
		return errors.New("mesh epsilon must not be negative").
			WithTag("mesh_epsilon", conf.MeshEpsilon)
	}

	return nil
}
