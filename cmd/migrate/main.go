package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hackgods/clinic-appointment-platform/internal/config"
	"github.com/hackgods/clinic-appointment-platform/internal/db"
	"github.com/hackgods/clinic-appointment-platform/internal/logging"
)

// Usage: migrate [up|down|version|force <version>]
func main() {
	logger := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")).With().Str("service", "migrate").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	mg, err := db.NewMigrator(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("create migrator")
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.Warn().Err(err).Msg("close migrator")
		}
	}()

	switch cmd {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down()
	case "force":
		var v int
		if _, scanErr := fmt.Sscanf(flag.Arg(1), "%d", &v); scanErr != nil {
			logger.Fatal().Str("arg", flag.Arg(1)).Msg("force needs a numeric version")
		}
		err = mg.Force(v)
	case "version":
	default:
		logger.Fatal().Str("command", cmd).Msg("unknown command")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}

	v, dirty, err := mg.Version()
	if err != nil {
		logger.Fatal().Err(err).Msg("read schema version")
	}
	logger.Info().Str("command", cmd).Uint("version", v).Bool("dirty", dirty).Msg("migrations complete")
}
