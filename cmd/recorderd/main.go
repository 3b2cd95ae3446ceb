// recorderd wires C1-C10 into one process and exposes the stable response
// envelope (spec.md §6) over a small Gin router, mirroring the teacher's
// cmd/tarsy/main.go: load config, connect stores, build services, serve a
// health endpoint plus a handful of debug-only read operations. The
// machine-callable RPC surface itself (events, rules_*, reservations,
// accounts, reserve, release) remains an external collaborator's contract;
// this process only answers the few read-only operations the core can
// safely serve synchronously (/v1/state, /v1/search).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/wa-project/recorder/pkg/appendlog"
	"github.com/wa-project/recorder/pkg/cleanup"
	"github.com/wa-project/recorder/pkg/config"
	"github.com/wa-project/recorder/pkg/degradation"
	"github.com/wa-project/recorder/pkg/envelope"
	"github.com/wa-project/recorder/pkg/lexical"
	"github.com/wa-project/recorder/pkg/masking"
	"github.com/wa-project/recorder/pkg/recorder"
	"github.com/wa-project/recorder/pkg/vectorstore"
	"github.com/wa-project/recorder/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// core bundles every component the process wires together, for handlers to
// close over.
type core struct {
	cfg         config.RecorderConfig
	log         *slog.Logger
	appendLog   *appendlog.Backend
	vectors     *vectorstore.Store
	sessions    *cleanup.Store
	retention   *cleanup.Service
	lexicalSvc  *lexical.Service
	maskingSvc  *masking.Service
	degradation *degradation.Manager
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		logger.Info("loaded environment", "path", envPath)
	}

	configPath := filepath.Join(*configDir, "recorder.yaml")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err, "path", configPath)
		os.Exit(1)
	}

	ctx := context.Background()
	c, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire recorder core", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	c.retention.Start(ctx)
	defer c.retention.Stop()

	router := c.router()
	logger.Info("recorderd listening", "addr", cfg.Server.ListenAddr, "version", version.Full())
	if err := router.Run(cfg.Server.ListenAddr); err != nil {
		logger.Error("http server exited", "error", err)
		os.Exit(1)
	}
}

// wire constructs every C1-C10 component from cfg, mirroring the teacher's
// connect-database-then-build-services sequencing in cmd/tarsy/main.go.
func wire(ctx context.Context, cfg config.RecorderConfig, logger *slog.Logger) (*core, error) {
	degMgr := degradation.Init(cfg.Degradation)

	backend, err := appendlog.Open(cfg.AppendLog)
	if err != nil {
		return nil, err
	}

	vectors, err := vectorstore.Open(ctx, cfg.VectorStore)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	sessions, err := cleanup.Open(ctx, cleanup.StoreConfig{Path: cfg.CleanupStore.Path})
	if err != nil {
		_ = backend.Close()
		_ = vectors.Close()
		return nil, err
	}
	retentionSvc := cleanup.NewService(sessions, cfg.Retention)

	maskingSvc := masking.NewService(cfg.Masking)

	lexicalSvc := lexical.NewService()
	events, err := backend.ReadAll()
	if err != nil {
		logger.Warn("could not replay append log into lexical index at startup", "error", err)
	} else {
		degMgr.Recover(degradation.DbWrite)
		indexEvents(lexicalSvc, events)
	}

	return &core{
		cfg:         cfg,
		log:         logger,
		appendLog:   backend,
		vectors:     vectors,
		sessions:    sessions,
		retention:   retentionSvc,
		lexicalSvc:  lexicalSvc,
		maskingSvc:  maskingSvc,
		degradation: degMgr,
	}, nil
}

// indexEvents projects each replayed event into the lexical service. The
// offset used for projection is the event's position in canonical replay
// order, matching log_offset's definition as the append-log ordinal.
func indexEvents(svc *lexical.Service, events []recorder.Event) {
	recorder.SortByMergeKey(events)
	for i, e := range events {
		svc.Index(lexical.Project(e, recorder.Offset{Ordinal: uint64(i)}))
	}
}

func (c *core) Close() {
	if err := c.appendLog.Close(); err != nil {
		c.log.Warn("error closing append log", "error", err)
	}
	if err := c.vectors.Close(); err != nil {
		c.log.Warn("error closing vector store", "error", err)
	}
	if err := c.sessions.Close(); err != nil {
		c.log.Warn("error closing session store", "error", err)
	}
}

func (c *core) router() *gin.Engine {
	gin.SetMode(getEnv("GIN_MODE", "release"))
	r := gin.Default()

	r.GET("/healthz", c.handleHealthz)
	r.GET("/v1/state", c.handleState)
	r.GET("/v1/search", c.handleSearch)
	return r
}

// handleHealthz reports liveness backed by C8's global degradation status,
// per spec.md §2's C11 addition: Healthy/Degraded -> 200, Critical -> 503.
func (c *core) handleHealthz(ctx *gin.Context) {
	status := c.degradation.Status()
	code := http.StatusOK
	if status == degradation.Critical {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, gin.H{"status": status, "version": version.Full()})
}

// handleState answers the CLI/RPC surface's read-only "state" operation
// with the stable envelope: append-log health/lag plus the degradation
// snapshot.
func (c *core) handleState(ctx *gin.Context) {
	started := time.Now()
	data := gin.H{
		"append_log":  c.appendLog.Health(),
		"lag":         c.appendLog.LagMetrics(),
		"degradation": c.degradation.Report(),
	}
	ctx.JSON(http.StatusOK, envelope.Ok(data, started))
}

// handleSearch answers the CLI/RPC surface's read-only "search" operation
// by delegating to the in-memory lexical search service (C6).
func (c *core) handleSearch(ctx *gin.Context) {
	started := time.Now()
	text := ctx.Query("q")
	if text == "" {
		ctx.JSON(http.StatusOK, envelope.Fail(
			envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "q is required"), started))
		return
	}
	result, err := c.lexicalSvc.Search(lexical.Query{
		Text:  text,
		Sort:  lexical.DefaultSort(),
		Limit: 20,
	})
	if err != nil {
		ctx.JSON(http.StatusOK, envelope.Fail(err, started))
		return
	}
	ctx.JSON(http.StatusOK, envelope.Ok(result, started))
}
