package security

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shrinex/warden/authc"
)

type (
	// Settings is the yaml-loadable engine configuration.
	//
	//	strategy: first        # first | atLeastOne | all
	//	lockout:
	//	  limit: 5
	//	  window: 15m
	Settings struct {
		Strategy string          `yaml:"strategy"`
		Lockout  LockoutSettings `yaml:"lockout"`
	}

	LockoutSettings struct {
		Limit  int    `yaml:"limit"`
		Window string `yaml:"window"`
	}
)

// Strategy names accepted by Settings
const (
	StrategyFirst      = "first"
	StrategyAtLeastOne = "atLeastOne"
	StrategyAll        = "all"
)

// LoadSettings parses yaml configuration
func LoadSettings(data []byte) (*Settings, error) {
	settings := &Settings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("security: parse settings: %w", err)
	}

	return settings, nil
}

// StrategyFactory resolves the configured consolidation policy.
// An empty strategy defaults to atLeastOne
func (s *Settings) StrategyFactory() (authc.StrategyFactory, error) {
	switch s.Strategy {
	case "", StrategyAtLeastOne:
		return authc.AtLeastOneSuccessful, nil
	case StrategyFirst:
		return authc.FirstSuccessful, nil
	case StrategyAll:
		return authc.AllSuccessful, nil
	default:
		return nil, fmt.Errorf("security: unknown strategy %q", s.Strategy)
	}
}

// Options converts settings into engine Options, suitable for
// SetGlobalOptions. Fields the yaml leaves unset keep their defaults
func (s *Settings) Options() (Options, error) {
	opts := *GetGlobalOptions()
	if s.Lockout.Limit > 0 {
		opts.LockoutLimit = s.Lockout.Limit
	}

	if len(s.Lockout.Window) != 0 {
		window, err := time.ParseDuration(s.Lockout.Window)
		if err != nil {
			return Options{}, fmt.Errorf("security: parse lockout window: %w", err)
		}
		opts.LockoutWindow = window
	}

	return opts, nil
}

// NewLockout builds the configured failure window,
// or nil when lockout is disabled
func (s *Settings) NewLockout() (*authc.Lockout, error) {
	if s.Lockout.Limit <= 0 {
		return nil, nil
	}

	window := GetGlobalOptions().GetLockoutWindow()
	if len(s.Lockout.Window) != 0 {
		parsed, err := time.ParseDuration(s.Lockout.Window)
		if err != nil {
			return nil, fmt.Errorf("security: parse lockout window: %w", err)
		}
		window = parsed
	}

	return authc.NewLockout(s.Lockout.Limit, window), nil
}
