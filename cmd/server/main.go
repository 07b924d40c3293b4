package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arhyth/bankadmin"
)

func main() {
	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := bankadmin.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}
	lvl, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("error parsing log level")
	}
	zerolog.SetGlobalLevel(lvl)

	repo, closeRepo, err := bankadmin.OpenRepository(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("error starting database")
	}
	defer closeRepo()

	node, err := snowflake.NewNode(cfg.Snowflake.Node)
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating snowflake node")
	}

	core := bankadmin.NewService(repo, node, &logger, bankadmin.WithIssuer(cfg.Issuer))
	svc := bankadmin.Chain(core,
		bankadmin.NewCircuitBreakMiddleware(bankadmin.NewServiceBreaker(cfg.Breaker.Settings())),
		bankadmin.NewLimitMiddleware(bankadmin.NewServiceLimits(
			cfg.Limits.Mutation,
			cfg.Limits.Distribution,
			cfg.Limits.Read,
			cfg.Limits.Statement,
			cfg.Limits.AcquireTimeout,
		)),
		bankadmin.NewValidationMiddleware(),
	)

	auth, err := bankadmin.NewAuthenticator(repo, cfg.Auth.Secret, cfg.Auth.SessionTTL, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting authenticator")
	}
	if err = auth.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("error bootstrapping admin")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      bankadmin.NewHTTPHandler(svc, auth, &logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutCtx)
	})

	if err = g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}
