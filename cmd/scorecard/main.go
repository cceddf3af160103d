// Package main provides the scorecard server binary. It wires the store,
// aggregate loader, audit trail, roster sync workers, and listing cache
// behind a chi router.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orgpulse/scorecard/pkg/audit"
	"github.com/orgpulse/scorecard/pkg/authz"
	"github.com/orgpulse/scorecard/pkg/cache"
	"github.com/orgpulse/scorecard/pkg/ha"
	"github.com/orgpulse/scorecard/pkg/roster"
	"github.com/orgpulse/scorecard/pkg/scorecard"
)

var version = "dev"

var (
	addrFlag   string
	dsnFlag    string
	rpcURLFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "scorecard",
		Short:   "Team scorecard and org hierarchy service",
		Version: version,
		Long: `scorecard serves the scoring, aggregation, and hierarchy API for
team scorecards: target-based metric scoring, scorecard read-model
assembly, manager and role chain resolution, and org chart layout.`,
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scorecard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&dsnFlag, "dsn", "",
		"Postgres DSN; empty runs an in-memory sqlite database for local development")
	serveCmd.Flags().StringVar(&rpcURLFlag, "rpc-url", "",
		"Base URL of the get_scorecard_aggregate procedure endpoint")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if dsn == "" {
		return gorm.Open(sqlite.Open(":memory:"), cfg)
	}
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
	return gorm.Open(postgres.Open(dsn), cfg)
}

func serve() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := openDB(dsnFlag)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	store := scorecard.NewStore(db)
	auditStore := audit.NewStore(db, logger)
	syncStore := roster.NewJobStore(db)

	// Replicas starting together race AutoMigrate without the lock.
	locker := ha.NewMigrationLocker(db)
	err = locker.WithLock(context.Background(), func() error {
		if err := store.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate scorecard tables: %w", err)
		}
		if err := auditStore.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate audit tables: %w", err)
		}
		if err := syncStore.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate roster sync tables: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	loaderCfg := scorecard.LoaderConfigFromEnv()
	var rpc scorecard.AggregateRPC
	if rpcURLFlag != "" {
		rpc = scorecard.NewHTTPAggregateRPC(rpcURLFlag)
		loaderCfg.UseRPC = true
	}
	loader := scorecard.NewLoader(store, rpc, loaderCfg, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Id"},
	}))

	cacheCfg := cache.ConfigFromEnv()
	apiRouter := scorecard.Router(loader, store, auditStore)
	if cacheCfg.Enabled {
		listingCache := cache.New(cacheCfg)
		r.Route("/api/scorecard/v1", func(r chi.Router) {
			r.Use(cache.Middleware(listingCache))
			r.Mount("/", apiRouter)
		})
	} else {
		r.Mount("/api/scorecard/v1", apiRouter)
	}
	var checker authz.Checker = authz.NewCachedChecker(authz.NewProfileChecker(db), authz.DefaultCacheTTL)
	if dsnFlag == "" {
		// The in-memory dev database has no seeded admin profiles.
		checker = authz.AllowAll{}
	}
	adminOnly := authz.RequireAdmin(checker)
	r.Route("/api/audit/v1", func(r chi.Router) {
		r.Use(adminOnly)
		r.Mount("/", audit.Router(auditStore))
	})
	r.Route("/api/roster/v1", func(r chi.Router) {
		r.Use(adminOnly)
		r.Mount("/", roster.Router(syncStore))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addrFlag,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := roster.NewWorkerPool(syncStore, store, roster.ConfigFromEnv(), logger)
	workersDone := make(chan struct{})
	go func() {
		workers.Run(ctx)
		close(workersDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("scorecard server listening", "addr", addrFlag, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-workersDone
	}
	return nil
}
