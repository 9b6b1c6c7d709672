package app

import (
	"fmt"

	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/data/db"
	"github.com/colonyops/refinery/internal/data/stores"
	"github.com/colonyops/refinery/internal/store/jsonfile"
)

// OpenTrail opens the trail store for cfg.Backend. The returned func
// releases it. A corrupt SQLite database is moved aside and recreated.
func OpenTrail(cfg config.TrailConfig) (trail.Store, func() error, error) {
	switch cfg.Backend {
	case config.TrailJSON:
		return jsonfile.NewTrailStore(cfg.Path), func() error { return nil }, nil
	case config.TrailSQLite:
		database, err := openDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return stores.NewTrailStore(database), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown trail backend %q", cfg.Backend)
	}
}

func openDB(path string) (*db.DB, error) {
	opts := db.DefaultOpenOptions()

	database, err := db.Open(path, opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open trail database: %w", err)
	}

	backup, rerr := stores.RecoverFromCorruption(path)
	if rerr != nil {
		return nil, fmt.Errorf("recover trail database: %w", rerr)
	}

	log := logging.Component("app")
	log.Warn().Str("backup", backup).Msg("trail database was corrupt, moved aside")

	database, err = db.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open trail database: %w", err)
	}
	return database, nil
}
