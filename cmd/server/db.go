package main

import (
	"os"
	"path/filepath"

	"github.com/CamberLoid/FHEVault/internal/config"
	"github.com/CamberLoid/FHEVault/internal/db"
	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// openStore 按配置选择存储
// 使用默认路径时自动创建 ~/.config/FHEVault/
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			if cfg.DBPath != config.DefaultDBPath() {
				// 自定义路径的目录需要已存在
				if _, err := os.Stat(filepath.Dir(cfg.DBPath)); err != nil {
					return nil, errors.Wrap(err, "database directory")
				}
			} else if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0700); err != nil {
				return nil, errors.Wrap(err, "create database directory")
			}
		}
		st, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.DBPath).Msg("using sqlite store")
		return st, nil

	default:
		log.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}
}
