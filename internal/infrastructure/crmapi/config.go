package crmapi

import (
	"errors"
	"time"
)

// Config holds connection settings for the external CRM REST API
type Config struct {
	// BaseURL is the API root, e.g. https://services.leadconnectorhq.com
	BaseURL string
	// ClientID is the OAuth application client id
	ClientID string
	// ClientSecret is the OAuth application client secret
	ClientSecret string
	// RedirectURL is the registered OAuth redirect URL
	RedirectURL string
	// APIVersion is sent as the Version header on every request
	APIVersion string
	// Timeout is the per-request timeout
	Timeout time.Duration
}

// Validate checks the configuration for required fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("crmapi: base URL is required")
	}
	if c.APIVersion == "" {
		return errors.New("crmapi: API version is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
