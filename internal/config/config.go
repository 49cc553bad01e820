// Package config содержит логику чтения конфигурации конвейера скриптендрука.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/skriptendruck-system/internal/pricing"
)

// Config содержит параметры конфигурации конвейера.
type Config struct {
	BasePath         string `env:"BASE_PATH"`
	DirectoryAddress string `env:"DIRECTORY_ADDRESS"`
	DirectoryRetries int    `env:"DIRECTORY_RETRIES"`
	FallbackPath     string `env:"FALLBACK_PATH"`
	BlocklistPath    string `env:"BLOCKLIST_PATH"`
	BindingTablePath string `env:"BINDING_TABLE_PATH"`
	StoragePath      string `env:"STORAGE_PATH"`
	ReportDir        string `env:"REPORT_DIR"`
	MetricsAddress   string `env:"METRICS_ADDRESS"`
	Workers          int    `env:"WORKERS"`

	// Тарифы задаются только окружением; по умолчанию действующие.
	PriceMonoPerPage  float64 `env:"PRICE_MONO_PER_PAGE" envDefault:"0.04"`
	PriceColorPerPage float64 `env:"PRICE_COLOR_PER_PAGE" envDefault:"0.10"`
	PriceBindingSmall float64 `env:"PRICE_BINDING_SMALL" envDefault:"1.00"`
	PriceBindingLarge float64 `env:"PRICE_BINDING_LARGE" envDefault:"1.50"`
	PriceFolder       float64 `env:"PRICE_FOLDER" envDefault:"0.50"`
	PriceDeposit      float64 `env:"PRICE_DEPOSIT" envDefault:"1.00"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envBasePath := cfg.BasePath
	envDirectoryAddress := cfg.DirectoryAddress
	envDirectoryRetries := cfg.DirectoryRetries
	envFallbackPath := cfg.FallbackPath
	envBlocklistPath := cfg.BlocklistPath
	envBindingTablePath := cfg.BindingTablePath
	envStoragePath := cfg.StoragePath
	envReportDir := cfg.ReportDir
	envMetricsAddress := cfg.MetricsAddress
	envWorkers := cfg.Workers

	flag.StringVar(&cfg.BasePath, "b", ".", "base directory of the copy shop layout")
	flag.StringVar(&cfg.DirectoryAddress, "r", "", "directory service address, empty disables lookups")
	flag.IntVar(&cfg.DirectoryRetries, "retries", 3, "directory service retry count")
	flag.StringVar(&cfg.FallbackPath, "f", "", "fallback user table path")
	flag.StringVar(&cfg.BlocklistPath, "x", "", "blocklist path")
	flag.StringVar(&cfg.BindingTablePath, "t", "", "binding table path, empty uses built-in table")
	flag.StringVar(&cfg.StoragePath, "s", "", "order store path, empty puts it under the base directory")
	flag.StringVar(&cfg.ReportDir, "o", "", "report output directory, empty puts it under the base directory")
	flag.StringVar(&cfg.MetricsAddress, "m", "", "metrics listen address, empty disables metrics")
	flag.IntVar(&cfg.Workers, "w", 1, "number of concurrent orders")

	flag.Parse()

	if envBasePath != "" {
		cfg.BasePath = envBasePath
	}
	if envDirectoryAddress != "" {
		cfg.DirectoryAddress = envDirectoryAddress
	}
	if envDirectoryRetries != 0 {
		cfg.DirectoryRetries = envDirectoryRetries
	}
	if envFallbackPath != "" {
		cfg.FallbackPath = envFallbackPath
	}
	if envBlocklistPath != "" {
		cfg.BlocklistPath = envBlocklistPath
	}
	if envBindingTablePath != "" {
		cfg.BindingTablePath = envBindingTablePath
	}
	if envStoragePath != "" {
		cfg.StoragePath = envStoragePath
	}
	if envReportDir != "" {
		cfg.ReportDir = envReportDir
	}
	if envMetricsAddress != "" {
		cfg.MetricsAddress = envMetricsAddress
	}
	if envWorkers != 0 {
		cfg.Workers = envWorkers
	}

	if cfg.BasePath == "" {
		cfg.BasePath = "."
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

// Rates возвращает тарифы из конфигурации.
func (c *Config) Rates() pricing.Rates {
	return pricing.Rates{
		MonoPerPage:  c.PriceMonoPerPage,
		ColorPerPage: c.PriceColorPerPage,
		BindingSmall: c.PriceBindingSmall,
		BindingLarge: c.PriceBindingLarge,
		Folder:       c.PriceFolder,
		Deposit:      c.PriceDeposit,
	}
}
