package eventbus

import "fmt"

// DefaultMaxHistory is the history bound applied when none is configured.
const DefaultMaxHistory = 100

// EventBusConfig defines the configuration for the event bus module.
//
// Example YAML configuration:
//
//	maxHistory: 250
type EventBusConfig struct {
	// MaxHistory is the maximum number of dispatched events retained in the
	// bus history. When the bound is exceeded the oldest records are evicted
	// first. Set to 0 (or leave unset) to use the default of 100.
	MaxHistory int `json:"maxHistory,omitempty" yaml:"maxHistory,omitempty" validate:"omitempty,min=0" env:"MAX_HISTORY"`
}

// Validate performs additional validation on the configuration.
// This is called after basic struct tag validation.
func (c *EventBusConfig) Validate() error {
	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = DefaultMaxHistory // Default value
	}
	return nil
}
