package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is wrapped by every *ConfigError
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEstimationFailed is returned when no tempo can be estimated
	ErrEstimationFailed = errors.New("tempo estimation failed")

	// ErrNoAudio is returned for empty input
	ErrNoAudio = errors.New("no audio samples")
)

// ConfigError describes one invalid configuration field. Options lists the
// accepted values for selector fields.
type ConfigError struct {
	Field   string
	Value   any
	Reason  string
	Options []string
}

func (e *ConfigError) Error() string {
	if len(e.Options) > 0 {
		return fmt.Sprintf("%s: %s %v, options are: %s",
			ErrInvalidConfig, e.Field, e.Value, strings.Join(e.Options, ", "))
	}
	return fmt.Sprintf("%s: %s %v %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
