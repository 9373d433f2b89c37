package provider

import (
	"errors"
	"fmt"
)

// ConfigError reports missing credentials or an unsupported model for a
// provider. Fatal for the call; never retried.
type ConfigError struct {
	Provider Provider
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Provider, e.Reason)
}

// TransportError reports a network or upstream API failure.
type TransportError struct {
	Provider Provider
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: upstream error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StreamError reports a transport failure after streaming began. Partial
// carries the fragments already delivered before the failure.
type StreamError struct {
	Err     error
	Partial string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
