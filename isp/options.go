package isp

import (
	"context"
	"time"

	"github.com/moffa90/go-ktdp/protocol"
)

// SleepFunc waits for d between CMD_STATUS polls. It returns early with the
// context error when ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the session configuration.
type Config struct {
	// ProgressCallback is called during updates to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Sleep is used between CMD_STATUS polls
	Sleep SleepFunc

	// InstallPollLimit is the number of INSTALL_IMAGES polls before giving up
	InstallPollLimit int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Sleep:            sleepContext,
		InstallPollLimit: protocol.InstallPollLimit,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithProgressCallback sets a callback function to track update progress.
//
// Example:
//
//	sess := isp.New(dev,
//	    isp.WithProgressCallback(func(p isp.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the session operations.
//
// Example:
//
//	sess := isp.New(dev, isp.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithSleepFunc replaces the poll sleep. Tests use it to run the protocol
// budgets without waiting; a nil function is ignored.
//
// Example:
//
//	var slept time.Duration
//	sess := isp.New(dev, isp.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
//	    slept += d
//	    return ctx.Err()
//	}))
func WithSleepFunc(sleep SleepFunc) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

// WithInstallPollLimit sets the number of 50 ms polls allowed for
// INSTALL_IMAGES. Default is 1500 (about 75 seconds).
//
// Example:
//
//	sess := isp.New(dev, isp.WithInstallPollLimit(3000))
func WithInstallPollLimit(polls int) Option {
	return func(c *Config) {
		if polls > 0 {
			c.InstallPollLimit = polls
		}
	}
}
