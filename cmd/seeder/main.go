package main

import (
	"context"
	"flag"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/arhyth/bankadmin"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	sfp := flag.String("seed", "testdata/seed_accounts.yml", "path to account fixture")
	flag.Parse()

	cfg, err := bankadmin.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}
	reqs, err := bankadmin.LoadSeedFile(*sfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error reading seed file")
	}

	repo, closeRepo, err := bankadmin.OpenRepository(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting database")
	}
	defer closeRepo()

	node, err := snowflake.NewNode(cfg.Snowflake.Node)
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating snowflake node")
	}
	svc := bankadmin.Chain(
		bankadmin.NewService(repo, node, &logger, bankadmin.WithIssuer(cfg.Issuer)),
		bankadmin.NewValidationMiddleware(),
	)

	ctx := context.Background()
	auth, err := bankadmin.NewAuthenticator(repo, cfg.Auth.Secret, cfg.Auth.SessionTTL, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting authenticator")
	}
	if err = auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("error bootstrapping admin")
	}

	n, err := bankadmin.Seed(ctx, svc, reqs, &logger)
	if err != nil {
		logger.Fatal().Err(err).Int("created", n).Msg("error seeding accounts")
	}
	logger.Info().Int("created", n).Int("total", len(reqs)).Msg("seeding done")
}
