package security

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type (
	// Option can be used to customize Options
	Option func(*Options)

	// Options contains config attributes that affect how the
	// authentication engine behaves process-wide
	Options struct {
		// LockoutLimit is the failure count per principal at which
		// further attempts are refused; non-positive disables lockout
		LockoutLimit int
		// LockoutWindow bounds how long failures count against the limit
		LockoutWindow time.Duration
		// NewMarker mints opaque remember-me markers
		NewMarker func() string
	}
)

func (opt *Options) GetLockoutWindow() time.Duration {
	if opt.LockoutWindow > 0 {
		return opt.LockoutWindow
	}

	return 15 * time.Minute
}

func SetGlobalOptions(opts Options) {
	if opts.NewMarker == nil {
		opts.NewMarker = defaultNewMarker
	}
	globalOptions.Store(&opts)
}

func GetGlobalOptions() *Options {
	return globalOptions.Load().(*Options)
}

var globalOptions = defaultGlobalOptions()

func defaultNewMarker() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func defaultGlobalOptions() *atomic.Value {
	options := Options{
		LockoutLimit:  5,
		LockoutWindow: 15 * time.Minute,
		NewMarker:     defaultNewMarker,
	}

	v := &atomic.Value{}
	v.Store(&options)
	return v
}
