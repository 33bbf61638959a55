package config

import (
	"time"

	"github.com/ellavondegurechaff/materialpool/materialpool"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"

	DefaultSessionTTL = 24 * time.Hour
)

// WebAppConfig contains web-specific configuration
type WebAppConfig struct {
	Config      *materialpool.Config
	Debug       bool
	Environment string
	SessionTTL  time.Duration
}

// NewWebAppConfig creates a new web app configuration
func NewWebAppConfig(cfg *materialpool.Config, debug bool) *WebAppConfig {
	environment := cfg.Web.Environment
	if environment == "" {
		environment = EnvironmentProduction
		if debug {
			environment = EnvironmentDevelopment
		}
	}

	return &WebAppConfig{
		Config:      cfg,
		Debug:       debug,
		Environment: environment,
		SessionTTL:  DefaultSessionTTL,
	}
}

// IsProduction reports whether cookies must be marked secure
func (w *WebAppConfig) IsProduction() bool {
	return w.Environment == EnvironmentProduction
}

// GetWebConfig returns the web configuration
func (w *WebAppConfig) GetWebConfig() materialpool.WebConfig {
	return w.Config.Web
}

// GetImportConfig returns the spreadsheet import configuration
func (w *WebAppConfig) GetImportConfig() materialpool.ImportConfig {
	return w.Config.Import
}

// GetSpacesConfig returns the object storage configuration
func (w *WebAppConfig) GetSpacesConfig() materialpool.SpacesConfig {
	return w.Config.Spaces
}

// GetLogConfig returns the log configuration
func (w *WebAppConfig) GetLogConfig() materialpool.LogConfig {
	return w.Config.Log
}
