package scan

import (
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/spibutton/pkg/button"
)

// Timing holds the scan-counted periods of the panel.
type Timing struct {
	// FlashSlowPeriod toggles Flash1 lamps on every scan that is a multiple of it.
	FlashSlowPeriod uint32
	// FlashFastPeriod toggles Flash2 lamps on every scan that is a multiple of it.
	FlashFastPeriod uint32
	// HoldThreshold is the number of consecutive pressed scans that must be
	// exceeded before a hold is recognized.
	HoldThreshold uint32
}

// DefaultTiming returns the timing used unless WithTiming overrides it.
func DefaultTiming() Timing {
	return Timing{
		FlashSlowPeriod: 6,
		FlashFastPeriod: 2,
		HoldThreshold:   10,
	}
}

// Validate rejects zero periods.
func (t Timing) Validate() error {
	if t.FlashSlowPeriod == 0 || t.FlashFastPeriod == 0 {
		return fmt.Errorf("scan: flash periods must be positive (slow=%d fast=%d)", t.FlashSlowPeriod, t.FlashFastPeriod)
	}
	if t.HoldThreshold == 0 {
		return fmt.Errorf("scan: hold threshold must be positive")
	}
	return nil
}

// Option configures a Controller.
type Option func(*Controller)

// WithTiming overrides the default flash periods and hold threshold.
func WithTiming(t Timing) Option {
	return func(c *Controller) {
		c.timing = t
	}
}

// WithLogger sets the logger used for buffer traces and event logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// OnEvents registers fn to be called after every scan that emitted at least
// one event, with the same slice Scan returns.
func OnEvents(fn func(events []button.Button)) Option {
	return func(c *Controller) {
		c.onEvents = fn
	}
}
