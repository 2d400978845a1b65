package config

import (
	"fmt"
	"os"
	"strconv"
)

// Sink kinds selectable via RELAY_SINK.
const (
	SinkGA4      = "ga4"
	SinkBigQuery = "bigquery"
)

// Config holds the relay configuration, read from environment variables.
// Command-line flags in cmd/relay may override individual fields.
type Config struct {
	// Port is the HTTP listen port for the relay server.
	Port string

	// Sink selects the outbound analytics sink: "ga4" or "bigquery".
	Sink string

	// GA4MeasurementID and GA4APISecret authenticate Measurement Protocol calls.
	GA4MeasurementID string
	GA4APISecret     string
	// GA4Endpoint overrides the Measurement Protocol endpoint (tests, proxies).
	GA4Endpoint string

	// BQProject and BQDataset locate the BigQuery events table.
	BQProject string
	BQDataset string

	// DefaultCurrency is used for cart and product events, and as the
	// fallback for checkout events that carry no currency code.
	DefaultCurrency string

	// FallbackBrand is used as item_brand when a product has no vendor.
	FallbackBrand string

	// IDPrefix is the fixed prefix for composite item identities when a
	// variant has no SKU. It is a deployment constant, not locale-derived.
	IDPrefix string

	// Debug gates diagnostic logging only, never behavior.
	Debug bool
}

// FromEnv builds a Config from environment variables, applying defaults
// for everything that has a sensible one.
func FromEnv() Config {
	return Config{
		Port:             envOr("RELAY_PORT", "8080"),
		Sink:             envOr("RELAY_SINK", SinkGA4),
		GA4MeasurementID: os.Getenv("GA4_MEASUREMENT_ID"),
		GA4APISecret:     os.Getenv("GA4_API_SECRET"),
		GA4Endpoint:      os.Getenv("GA4_ENDPOINT"),
		BQProject:        os.Getenv("BQ_PROJECT"),
		BQDataset:        envOr("BQ_DATASET", "analytics"),
		DefaultCurrency:  envOr("RELAY_CURRENCY", "USD"),
		FallbackBrand:    envOr("RELAY_FALLBACK_BRAND", "unknown"),
		IDPrefix:         envOr("RELAY_ID_PREFIX", "shopify"),
		Debug:            envBool("RELAY_DEBUG"),
	}
}

// Validate checks that the selected sink has the settings it needs.
func (c Config) Validate() error {
	switch c.Sink {
	case SinkGA4:
		if c.GA4MeasurementID == "" || c.GA4APISecret == "" {
			return fmt.Errorf("config: sink %q requires GA4_MEASUREMENT_ID and GA4_API_SECRET", c.Sink)
		}
	case SinkBigQuery:
		if c.BQProject == "" {
			return fmt.Errorf("config: sink %q requires BQ_PROJECT", c.Sink)
		}
	default:
		return fmt.Errorf("config: unknown sink %q", c.Sink)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
