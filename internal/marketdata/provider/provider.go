// Package provider builds the configured history source.
package provider

import (
	"fmt"
	"io"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/marketdata/angel"
	"trading-analysisv1/internal/marketdata/eodhd"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/store/sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the HistorySource named by cfg.Source and a closer for it.
// For the sqlite source the returned value is a *sqlite.Store.
func Open(cfg *config.Config) (model.HistorySource, io.Closer, error) {
	switch cfg.Source {
	case config.SourceSQLite:
		s, err := sqlite.New(sqlite.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.SourceAngel, config.SourceEODHD:
		return Remote(cfg)
	default:
		return nil, nil, fmt.Errorf("provider: unknown source %q", cfg.Source)
	}
}

// Remote returns a network provider. The sqlite source is rejected since a
// backfill from the store into itself does nothing.
func Remote(cfg *config.Config) (model.HistorySource, io.Closer, error) {
	switch cfg.Source {
	case config.SourceAngel:
		c := angel.NewClient(angel.Config{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
			Exchange:   cfg.AngelExchange,
			RootURL:    cfg.AngelRootURL,
		})
		return c, c, nil
	case config.SourceEODHD:
		var opts []eodhd.ClientOption
		if cfg.EODHDBaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(cfg.EODHDBaseURL))
		}
		return eodhd.NewClient(cfg.EODHDAPIKey, opts...), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("provider: %q is not a remote source", cfg.Source)
	}
}
