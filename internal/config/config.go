package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`

	// Directories
	DataDirectory      string `json:"data_directory"`
	TemplatesDirectory string `json:"templates_directory"`
	StaticDirectory    string `json:"static_directory"`

	// GeoRowCap bounds how many geolocation rows are loaded for map views
	GeoRowCap int `json:"geo_row_cap"`

	// ScatterPointCap bounds how many points scatter charts return
	ScatterPointCap int `json:"scatter_point_cap"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:         ":8080",
		Debug:              false,
		DataDirectory:      filepath.Join(wd, "data"),
		TemplatesDirectory: filepath.Join(wd, "web", "templates"),
		StaticDirectory:    filepath.Join(wd, "web", "static"),
		GeoRowCap:          100000,
		ScatterPointCap:    20000,
	}
}

// Load loads configuration from a .env file (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg := DefaultConfig()

	if addr := os.Getenv("SHOPDASH_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("SHOPDASH_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}
	if dataDir := os.Getenv("SHOPDASH_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	if templatesDir := os.Getenv("SHOPDASH_TEMPLATES_DIR"); templatesDir != "" {
		cfg.TemplatesDirectory = templatesDir
	}
	if staticDir := os.Getenv("SHOPDASH_STATIC_DIR"); staticDir != "" {
		cfg.StaticDirectory = staticDir
	}
	if capStr := os.Getenv("SHOPDASH_GEO_ROW_CAP"); capStr != "" {
		if n, err := strconv.Atoi(capStr); err == nil && n >= 0 {
			cfg.GeoRowCap = n
		} else {
			log.Printf("Warning: ignoring invalid SHOPDASH_GEO_ROW_CAP %q", capStr)
		}
	}
	if capStr := os.Getenv("SHOPDASH_SCATTER_POINT_CAP"); capStr != "" {
		if n, err := strconv.Atoi(capStr); err == nil && n >= 0 {
			cfg.ScatterPointCap = n
		} else {
			log.Printf("Warning: ignoring invalid SHOPDASH_SCATTER_POINT_CAP %q", capStr)
		}
	}

	return cfg
}
