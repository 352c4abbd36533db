// Package config carries the runtime settings for the payment core:
// per-provider gateway credentials and endpoints, plus the shared retry
// and HTTP timeout constants. Nothing inside the core reads these
// values from the environment itself; they are resolved once here and
// passed down at construction.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider identifies a payment gateway integration.
type Provider string

const (
	ProviderSadad Provider = "SADAD"
	ProviderSep   Provider = "SEP"
)

// ProviderConfig holds the gateway settings for one provider.
type ProviderConfig struct {
	MerchantID  string
	APIKey      string
	BaseURL     string
	CallbackURL string
}

// Enabled reports whether the provider has credentials configured.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// Retry holds the shared retry policy settings applied to
// provider-idempotent gateway calls.
type Retry struct {
	MaxAttempts int
	Delay       time.Duration
}

// ShouldRetry reports whether another attempt is allowed after the
// given number of completed attempts.
func (r Retry) ShouldRetry(attempt int) bool {
	return attempt < r.MaxAttempts
}

// Config is the full configuration for the payment core.
type Config struct {
	Providers      map[Provider]ProviderConfig
	Retry          Retry
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	ListenAddr     string
}

// Provider returns the configuration for the named provider.
func (c Config) Provider(p Provider) (ProviderConfig, bool) {
	pc, ok := c.Providers[p]
	return pc, ok
}

// Default returns the built-in configuration used when no environment
// overrides are present.
func Default() Config {
	return Config{
		Providers: map[Provider]ProviderConfig{
			ProviderSadad: {
				MerchantID:  "SADAD-123456789",
				APIKey:      "sadad-api-key",
				BaseURL:     "https://sadad.shaparak.ir/api/v1/payment",
				CallbackURL: "https://yourapp.com/sadad/callback",
			},
			ProviderSep: {
				MerchantID:  "SEP-987654321",
				APIKey:      "sep-api-key",
				BaseURL:     "https://sep.shaparak.ir/payment/start",
				CallbackURL: "https://yourapp.com/sep/callback",
			},
		},
		Retry: Retry{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
		},
		ConnectTimeout: 3 * time.Second,
		ReadTimeout:    7 * time.Second,
		ListenAddr:     ":8080",
	}
}

// Load builds a Config from the environment, falling back to Default
// values for anything unset.
func Load() (Config, error) {
	cfg := Default()

	for p := range cfg.Providers {
		pc := cfg.Providers[p]
		prefix := string(p) + "_"
		pc.MerchantID = getString(prefix+"MERCHANT_ID", pc.MerchantID)
		pc.APIKey = getString(prefix+"API_KEY", pc.APIKey)
		pc.BaseURL = getString(prefix+"API_URL", pc.BaseURL)
		pc.CallbackURL = getString(prefix+"CALLBACK_URL", pc.CallbackURL)
		cfg.Providers[p] = pc
	}

	maxAttempts, err := getInt("MAX_RETRY_ATTEMPTS", cfg.Retry.MaxAttempts)
	if err != nil {
		return Config{}, err
	}
	if maxAttempts < 1 {
		return Config{}, fmt.Errorf("config: MAX_RETRY_ATTEMPTS must be at least 1, got %d", maxAttempts)
	}
	cfg.Retry.MaxAttempts = maxAttempts

	if cfg.Retry.Delay, err = getDuration("RETRY_DELAY", cfg.Retry.Delay); err != nil {
		return Config{}, err
	}
	if cfg.ConnectTimeout, err = getDuration("CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return Config{}, err
	}
	cfg.ListenAddr = getString("LISTEN_ADDR", cfg.ListenAddr)

	return cfg, nil
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}
