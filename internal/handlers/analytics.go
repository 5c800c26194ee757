package handlers

import "spacesprotocol.org/marketplace-web/internal/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	PlausibleDomain  string // e.g. market.spacesprotocol.org
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
}

// AnalyticsFromConfig copies the configured analytics identifiers.
func AnalyticsFromConfig(cfg config.AnalyticsConfig) Analytics {
	return Analytics{
		PlausibleDomain:  cfg.PlausibleDomain,
		GA4MeasurementID: cfg.GA4MeasurementID,
	}
}

// Enabled reports whether any analytics snippet should be rendered.
func (a Analytics) Enabled() bool {
	return a.PlausibleDomain != "" || a.GA4MeasurementID != ""
}
