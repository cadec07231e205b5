package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/referrals/pkg/formatting"
)

const (
	EnvServicesExtractionURL   = "REFERRALS_EXTRACTION_URL"
	EnvServicesIdentityURL     = "REFERRALS_IDENTITY_URL"
	EnvServicesFHIRURL         = "REFERRALS_FHIR_URL"
	EnvServicesTimeout         = "REFERRALS_SERVICE_TIMEOUT"
	EnvServicesMaxDocumentSize = "REFERRALS_MAX_DOCUMENT_SIZE"
)

// ServicesConfig locates the external collaborators of a run.
type ServicesConfig struct {
	ExtractionURL   string `toml:"extraction_url"`
	IdentityURL     string `toml:"identity_url"`
	FHIRURL         string `toml:"fhir_url"`
	Timeout         string `toml:"timeout"`
	MaxDocumentSize string `toml:"max_document_size"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ServicesConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxDocumentSizeBytes returns MaxDocumentSize in bytes.
func (c *ServicesConfig) MaxDocumentSizeBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxDocumentSize)
	if err != nil {
		return 25 * 1024 * 1024
	}
	return n
}

func (c *ServicesConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ServicesConfig) Merge(overlay *ServicesConfig) {
	if overlay.ExtractionURL != "" {
		c.ExtractionURL = overlay.ExtractionURL
	}
	if overlay.IdentityURL != "" {
		c.IdentityURL = overlay.IdentityURL
	}
	if overlay.FHIRURL != "" {
		c.FHIRURL = overlay.FHIRURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
}

func (c *ServicesConfig) loadDefaults() {
	if c.ExtractionURL == "" {
		c.ExtractionURL = "http://localhost:7001"
	}
	if c.IdentityURL == "" {
		c.IdentityURL = "http://localhost:7002"
	}
	if c.FHIRURL == "" {
		c.FHIRURL = "http://localhost:8080/fhir"
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "25MB"
	}
}

func (c *ServicesConfig) loadEnv() {
	if v := os.Getenv(EnvServicesExtractionURL); v != "" {
		c.ExtractionURL = v
	}
	if v := os.Getenv(EnvServicesIdentityURL); v != "" {
		c.IdentityURL = v
	}
	if v := os.Getenv(EnvServicesFHIRURL); v != "" {
		c.FHIRURL = v
	}
	if v := os.Getenv(EnvServicesTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvServicesMaxDocumentSize); v != "" {
		c.MaxDocumentSize = v
	}
}

func (c *ServicesConfig) validate() error {
	urls := map[string]string{
		"extraction_url": c.ExtractionURL,
		"identity_url":   c.IdentityURL,
		"fhir_url":       c.FHIRURL,
	}
	for name, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxDocumentSize); err != nil {
		return fmt.Errorf("invalid max_document_size: %w", err)
	}
	return nil
}
