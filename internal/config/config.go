package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	PageSize      int    `json:"page_size"`
	SearchLimit   int    `json:"search_limit"`
	Telegram      struct {
		Token string `json:"token"`
	} `json:"telegram"`
	Catalog struct {
		APIKey        string  `json:"api_key"`
		BaseURL       string  `json:"base_url"`
		LegacyBaseURL string  `json:"legacy_base_url"`
		RateLimit     float64 `json:"rate_limit"`
	} `json:"catalog"`
	Session struct {
		TTLMinutes int `json:"ttl_minutes"`
	} `json:"session"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".tunefetch"),
		LogLevel:      "info",
		MaxConcurrent: 4,
		PageSize:      10,
		SearchLimit:   50,
	}
	cfg.Catalog.RateLimit = 8
	// TTLMinutes 0 keeps sessions until the owner replaces them.
	cfg.Session.TTLMinutes = 0
	cfg.HTTP.Listen = "127.0.0.1:8750"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if apiKey := os.Getenv("CATALOG_API_KEY"); apiKey != "" {
		cfg.Catalog.APIKey = apiKey
	}
	if baseURL := os.Getenv("CATALOG_BASE_URL"); baseURL != "" {
		cfg.Catalog.BaseURL = baseURL
	}
	if legacyURL := os.Getenv("CATALOG_LEGACY_BASE_URL"); legacyURL != "" {
		cfg.Catalog.LegacyBaseURL = legacyURL
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
