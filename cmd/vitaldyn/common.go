package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vitaldyn/internal/config"
	"github.com/nvandessel/vitaldyn/internal/store"
)

// loadConfig loads the --config file (or the default file) with env overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// dbPath resolves the database: --db, then store.path, then the default.
func dbPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	if cfg != nil && cfg.Store.Path != "" {
		return cfg.Store.Path, nil
	}
	return store.DefaultDBPath()
}

// openStore opens the database resolved by dbPath.
func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path, err := dbPath(cmd, cfg)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}
