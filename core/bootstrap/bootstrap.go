// Package bootstrap wires the infrastructure every deployment needs before
// the bot can serve: logger, database pool, and schema migrations.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/cisnemotors/leadbot/core/config"
	coredatabase "github.com/cisnemotors/leadbot/core/database"
	"github.com/cisnemotors/leadbot/core/logger"
)

// Result exposes infrastructure initialized by Run. The caller owns DB and
// closes it on shutdown.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to Postgres, and applies migrations,
// in that order; a migration failure closes the fresh pool before returning.
func Run(cfg *coreconfig.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := coredatabase.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}

	db, err := coredatabase.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if err := coredatabase.RunMigrations(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
