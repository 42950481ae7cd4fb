package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline operations.
var (
	ErrConfiguration     = errors.New("invalid configuration")
	ErrDownload          = errors.New("attachment download failed")
	ErrExtraction        = errors.New("text extraction failed")
	ErrInference         = errors.New("inference failed")
	ErrMalformedResponse = errors.New("malformed classifier response")
)

// ConfigurationError reports an invalid policy or service setting
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration)
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
