// Package actions holds the application's responses to panel events.
package actions

import (
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/spibutton/pkg/button"
)

// Panel is the part of scan.Controller the actions write back to.
type Panel interface {
	SetButton(pos int, b button.Button) error
}

// NextState returns the state a hold advances to: Off, On, Flash1, Flash2, Off.
func NextState(s button.State) button.State {
	switch s {
	case button.StateOff:
		return button.StateOn
	case button.StateOn:
		return button.StateFlash1
	case button.StateFlash1:
		return button.StateFlash2
	default:
		return button.StateOff
	}
}

// CycleOnHold advances the state of every cell that reported a hold and
// restarts its hold count, so the next step needs another full hold.
func CycleOnHold(p Panel, events []button.Button) error {
	for _, ev := range events {
		if !ev.IsHoldEvent() {
			continue
		}
		ev.SetState(NextState(ev.State))
		ev.ClearHold()
		ev.SetHoldEvent(false)
		if err := p.SetButton(ev.ID(), ev); err != nil {
			return fmt.Errorf("actions: write back button %d: %w", ev.ID(), err)
		}
	}
	return nil
}

// LogEvents reports every event at info level.
func LogEvents(logger *slog.Logger, events []button.Button) {
	for _, ev := range events {
		kind := "change"
		if ev.IsHoldEvent() {
			kind = "hold"
		}
		logger.Info("button", "id", ev.ID(), "event", kind, "state", ev.State)
	}
}
