package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/vaifllc/youyesyou-core/badges"
	"github.com/vaifllc/youyesyou-core/cachestore"
	"github.com/vaifllc/youyesyou-core/countstore"
	"github.com/vaifllc/youyesyou-core/flagstore"
	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/moderation/keyword"
	"github.com/vaifllc/youyesyou-core/moderation/visual"
	"github.com/vaifllc/youyesyou-core/notifier"
	"github.com/vaifllc/youyesyou-core/pipeline"
	"github.com/vaifllc/youyesyou-core/points"
	"github.com/vaifllc/youyesyou-core/setstore"
	"github.com/vaifllc/youyesyou-core/standing"
	"github.com/vaifllc/youyesyou-core/store"
	"github.com/vaifllc/youyesyou-core/store/memstore"
	"github.com/vaifllc/youyesyou-core/store/mongostore"
)

type Config struct {
	Logger                  *slog.Logger
	MongoURL                string
	MongoDB                 string
	RedisURL                string
	Bind                    string
	SlackWebhookURL         string
	ClassifierEndpoint      string
	ClassifierAPIUser       string
	ClassifierAPISecret     string
	WordListsPath           string
	BlocklistPath           string
	FlaggedEscalationPerDay int
}

type Server struct {
	echo     *echo.Echo
	httpd    *http.Server
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	standing *standing.Tracker
	points   *points.Engine
	flags    flagstore.FlagStore
}

func NewServer(ctx context.Context, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var st store.Store
	if config.MongoURL != "" {
		ms, err := mongostore.NewMongoStore(ctx, config.MongoURL, config.MongoDB)
		if err != nil {
			return nil, err
		}
		st = ms
		logger.Info("using mongodb store", "db", config.MongoDB)
	} else {
		st = memstore.NewMemStore()
		logger.Warn("no mongo-url configured, using in-memory store")
	}

	var counters countstore.CountStore
	var flags flagstore.FlagStore
	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		var err error
		counters, err = countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing countstore: %w", err)
		}
		flags, err = flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing flagstore: %w", err)
		}
		cache, err = cachestore.NewRedisCacheStore(config.RedisURL, 5*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing cachestore: %w", err)
		}
	} else {
		counters = countstore.NewMemCountStore()
		flags = flagstore.NewMemFlagStore()
		cache = cachestore.NewMemCacheStore(10_000, 5*time.Minute)
	}

	sets := setstore.NewDefaultSetStore()
	if config.WordListsPath != "" {
		if err := sets.LoadFromFileJSON(config.WordListsPath); err != nil {
			return nil, fmt.Errorf("loading word lists: %w", err)
		}
	}
	hard, err := loadBlocklist(config.BlocklistPath)
	if err != nil {
		return nil, err
	}

	engine := moderation.NewEngine(logger.With("system", "moderation"), sets, hard, moderation.DefaultConfig())
	gate := moderation.NewGate(engine)

	var vis *visual.Client
	if config.ClassifierAPISecret != "" {
		vis = visual.NewClient(logger.With("system", "visual"), config.ClassifierEndpoint, config.ClassifierAPIUser, config.ClassifierAPISecret)
	} else {
		logger.Info("image classifier not configured, image checks fail open")
	}

	standingCfg := standing.DefaultConfig()
	standingCfg.FlaggedPerDayThreshold = config.FlaggedEscalationPerDay
	tracker := standing.NewTracker(st, cache, counters, logger.With("system", "standing"), standingCfg)

	pts := points.NewEngine(st, logger.With("system", "points"))
	bdg := badges.NewEngine(st, st, pts, logger.With("system", "badges"))

	var sinks []notifier.Notifier
	if config.SlackWebhookURL != "" {
		sinks = append(sinks, notifier.NewSlackNotifier(config.SlackWebhookURL))
	} else {
		sinks = append(sinks, notifier.NoopNotifier{})
	}
	disp := notifier.NewDispatcher(logger.With("system", "notifier"), sinks...)

	pl := pipeline.NewPipeline(st, tracker, gate, vis, pts, bdg, disp, counters, flags, logger.With("system", "pipeline"))

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	srv := &Server{
		echo:     e,
		logger:   logger,
		pipeline: pl,
		standing: tracker,
		points:   pts,
		flags:    flags,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/api/submissions", srv.HandleSubmission)
	e.POST("/api/identifiers/check", srv.HandleIdentifierCheck)
	e.POST("/api/content/:id/review", srv.HandleReview)
	e.GET("/api/content/:id/flags", srv.HandleContentFlags)
	e.GET("/api/users/:id/standing", srv.HandleStanding)
	e.POST("/api/users/:id/warnings", srv.HandleIssueWarning)
	e.POST("/api/users/:id/warnings/sweep", srv.HandleSweepWarnings)
	e.DELETE("/api/users/:id/warnings/:index", srv.HandleDeactivateWarning)
	e.POST("/api/users/:id/login", srv.HandleLogin)
	e.POST("/api/users/:id/claims", srv.HandleClaim)

	return srv, nil
}

// blocklist file schema: hard-block terms with optional allowlisted
// containing words (eg benign words a blocked term is a substring of)
type blocklistFile struct {
	Terms []string `json:"terms"`
	Allow []string `json:"allow"`
}

func loadBlocklist(p string) (*keyword.Matcher, error) {
	if p == "" {
		return keyword.MustNewMatcher(nil, nil), nil
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("loading blocklist: %w", err)
	}
	var bf blocklistFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("parsing blocklist: %w", err)
	}
	m, err := keyword.NewMatcher(bf.Terms, bf.Allow)
	if err != nil {
		return nil, fmt.Errorf("compiling blocklist: %w", err)
	}
	return m, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)
		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.httpd.Shutdown(ctx)
}
