package api

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/symphonia/tms-sync/internal/models"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var tmsTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)

// ValidateTMSType validates a tmsType path parameter.
func ValidateTMSType(tmsType string) error {
	if tmsType == "" {
		return ValidationError{Field: "tms_type", Message: "TMS type is required"}
	}
	if !tmsTypePattern.MatchString(tmsType) {
		return ValidationError{Field: "tms_type", Message: "TMS type must be lowercase alphanumeric"}
	}
	return nil
}

// ValidateCredentials validates provider credentials supplied on a
// connection update.
func ValidateCredentials(creds *models.Credentials) error {
	if creds.APIToken == "" && creds.APITokenRef == "" {
		return ValidationError{Field: "credentials", Message: "API token or token reference is required"}
	}
	if creds.APIURL == "" {
		return ValidationError{Field: "api_url", Message: "API URL is required"}
	}
	return ValidateURL(creds.APIURL)
}

// ValidateSyncConfig validates sync configuration supplied on a connection
// update.
func ValidateSyncConfig(cfg *models.SyncConfig) error {
	if cfg.SyncInterval < 0 || cfg.SyncInterval > 1440 {
		return ValidationError{Field: "sync_interval", Message: "Sync interval must be between 0 and 1440 minutes"}
	}
	if cfg.TransportLimit < 0 {
		return ValidationError{Field: "transport_limit", Message: "Transport limit cannot be negative"}
	}
	if cfg.CompanyLimit < 0 {
		return ValidationError{Field: "company_limit", Message: "Company limit cannot be negative"}
	}
	if cfg.ContactLimit < 0 {
		return ValidationError{Field: "contact_limit", Message: "Contact limit cannot be negative"}
	}
	if cfg.MaxPages < 0 || cfg.MaxPages > 10000 {
		return ValidationError{Field: "max_pages", Message: "Max pages must be between 0 and 10000"}
	}
	return nil
}

// ValidateURL validates a URL string
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ValidationError{Field: "url", Message: "URL is required"}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return ValidationError{Field: "url", Message: "URL must have a host"}
	}

	return nil
}
