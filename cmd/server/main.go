// main wires the composition root: config, logging, stores, the approval
// engines and their HTTP handlers, then runs the server until a signal or a
// fatal component error stops it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/group"
	"github.com/manny-e1/user-management-backend-2/internal/maintenance"
	"github.com/manny-e1/user-management-backend-2/internal/mfaconfig"
	"github.com/manny-e1/user-management-backend-2/internal/platform/config"
	"github.com/manny-e1/user-management-backend-2/internal/platform/httpserver"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/platform/metrics"
	"github.com/manny-e1/user-management-backend-2/internal/platform/middleware"
	"github.com/manny-e1/user-management-backend-2/internal/platform/postgres"
	"github.com/manny-e1/user-management-backend-2/internal/platform/redis"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	"github.com/manny-e1/user-management-backend-2/internal/securenote"
	httptransport "github.com/manny-e1/user-management-backend-2/internal/transport/http"
	"github.com/manny-e1/user-management-backend-2/internal/txnlimit"
	"github.com/manny-e1/user-management-backend-2/internal/user"
	"github.com/manny-e1/user-management-backend-2/internal/user/lockout"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	runner := &tx.SQLRunner{DB: db}

	auditOpts := []audit.Option{audit.WithMetrics(m)}
	var sink *audit.KafkaSink
	if cfg.KafkaBrokers != "" {
		sink, err = audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
		log.Info("audit mirror enabled", "topic", cfg.AuditTopic)
	}
	trail := audit.NewService(audit.NewPostgresStore(db), log, auditOpts...)
	rejections := rejection.NewPostgresStore(db)

	var lockouts lockout.Store = lockout.NewMemoryStore()
	if redisClient != nil {
		lockouts = lockout.NewRedisStore(redisClient.Client)
		log.Info("using redis lockout store")
	}

	jwtSvc := user.NewJWTService(cfg.JWTSigningKey, cfg.SessionTTL)
	userService := user.NewService(
		user.NewPostgresStore(db),
		user.NewPostgresTokenStore(db),
		user.NewPostgresSessionStore(db),
		lockouts, trail, runner, jwtSvc, cfg.BcryptCost, log)
	groupService := group.NewService(group.NewPostgresStore(db), trail, log)

	maintEngine := approval.NewEngine(maintenance.Kind, maintenance.NewPostgresStore(db),
		trail, rejections, runner, log, approval.WithMetrics[maintenance.Payload](m))
	limitEngine := approval.NewEngine(txnlimit.Kind, txnlimit.NewPostgresStore(db),
		trail, rejections, runner, log, approval.WithMetrics[txnlimit.Payload](m))
	mfaEngine := approval.NewEngine(mfaconfig.Kind, mfaconfig.NewPostgresStore(db),
		trail, rejections, runner, log, approval.WithMetrics[mfaconfig.Payload](m))
	noteEngine := approval.NewEngine(securenote.Kind, securenote.NewPostgresStore(db),
		trail, rejections, runner, log, approval.WithMetrics[securenote.Payload](m))

	makerGate := middleware.RequireRole(group.RoleAdmin, group.RoleManager1, group.RoleNormalUser)
	checkerGate := middleware.RequireRole(group.RoleAdmin2, group.RoleManager2, group.RoleNormal2)

	healthChecks := map[string]func(ctx context.Context) error{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  m,
		Sessions: userService,
		Users:    user.NewHandler(userService, log),
		Groups:   group.NewHandler(groupService, log),
		Audit:    audit.NewHandler(trail, log),
		Kinds: []httptransport.Registrar{
			maintenance.NewHandler(maintEngine, log, maintenance.WithGates(makerGate, checkerGate)),
			txnlimit.NewHandler(limitEngine, log, txnlimit.WithGates(makerGate, checkerGate)),
			mfaconfig.NewHandler(mfaEngine, log, mfaconfig.WithGates(makerGate, checkerGate)),
			securenote.NewHandler(noteEngine, log, securenote.WithGates(makerGate, checkerGate)),
		},
		PendingCounts: map[string]httptransport.PendingCounter{
			string(audit.ModuleSystemMaintenance): maintEngine,
			string(audit.ModuleTransactionLimit):  limitEngine,
			string(audit.ModuleMFAConfiguration):  mfaEngine,
			string(audit.ModuleISecureNote):       noteEngine,
		},
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
