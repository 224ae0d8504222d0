package config

import "github.com/hyperjump/hikeplanner/internal/models"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hikeplanner/data/db/trails.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/hikeplanner/data/indices/bleve"
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = BackendStore
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = models.DefaultSearchLimit
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = models.MaxSearchLimit
	}
	if cfg.Search.DefaultSort == "" {
		cfg.Search.DefaultSort = string(models.SortByRating)
	}
	if cfg.Search.DefaultOrder == "" {
		cfg.Search.DefaultOrder = string(models.SortDesc)
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".json", ".yaml", ".yml", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Import.Directories) > 0 && cfg.Import.Recursive == nil {
		t := true
		cfg.Import.Recursive = &t
	}
	if cfg.Seed.Count == 0 {
		cfg.Seed.Count = 50
	}
}
