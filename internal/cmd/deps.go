package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/credential"
	"github.com/nhle/bidboard/internal/log"
	"github.com/nhle/bidboard/internal/model"
	"github.com/nhle/bidboard/internal/store"
)

// readConfig loads the file named by --config.
func readConfig() (*model.AppConfig, error) {
	conf, err := model.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return conf, nil
}

// setupLogger configures logging from conf. console additionally writes
// to stderr.
func setupLogger(conf *model.AppConfig, console bool) (*slog.Logger, func(), error) {
	return log.Setup(log.Options{
		Level:   log.Level(conf.Log.Level),
		File:    conf.Log.File,
		Console: console,
	})
}

// newClient builds an API client that reads and refreshes tokens through
// creds.
func newClient(conf *model.AppConfig, creds api.TokenStore, logger *slog.Logger) *api.Client {
	return api.NewClient(conf.API.BaseURL, creds,
		api.WithTimeout(conf.RequestTimeout()),
		api.WithRateLimit(conf.API.RequestsPerSec),
		api.WithLogger(logger))
}

// openServices opens the credential store and the inbox cache.
func openServices(conf *model.AppConfig) (*credential.Store, *store.SQLiteStore, error) {
	creds, err := credential.Open()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.NewSQLiteStore(conf.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening inbox cache: %w", err)
	}
	return creds, db, nil
}
