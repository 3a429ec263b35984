// Package backend selects and opens the configured ledger storage.
package backend

import (
	"context"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	storage "github.com/danilovkiri/dk-go-panel/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1/inbadger"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1/infile"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1/inpsql"
	"github.com/rs/zerolog"
)

// Open returns PSQL storage when a DSN is set, Badger storage when a
// Badger directory is set and flat-file storage otherwise.
func Open(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (storage.Storage, error) {
	if cfg == nil {
		return nil, &storageErrors.StorageFoundNilArgument{Msg: "nil storage config was passed to storage selector"}
	}
	switch {
	case cfg.DatabaseDSN != "":
		log.Info().Msg("using PSQL storage")
		return inpsql.InitStorage(ctx, cfg, log)
	case cfg.BadgerDir != "":
		log.Info().Msg("using badger storage")
		return inbadger.InitStorage(cfg, log)
	default:
		log.Info().Msg("using file storage")
		return infile.InitStorage(cfg, log)
	}
}
