package scan

import (
	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
	"github.com/OpenTraceLab/spibutton/pkg/button"
)

// decodeInputs samples every button from the bit-corrected response,
// updates debounce state and returns the events of this scan.
func (c *Controller) decodeInputs(rx []byte) []button.Button {
	var events []button.Button

	for i := range c.buttons {
		b := &c.buttons[i]

		// Inputs are pulled high; a pressed button reads as a clear bit.
		pressed := !bitorder.Bit(rx, i)
		isDown := pressed && !b.LastPressed()
		isUp := !pressed && b.LastPressed()

		b.Sample(pressed)
		isHold := b.PressedScans() > c.timing.HoldThreshold

		if b.NotifyChange && (isDown || isUp) {
			b.SetHoldEvent(false)
			events = append(events, *b)
		}
		if b.NotifyHold && isHold {
			b.SetHoldEvent(true)
			events = append(events, *b)
		}

		if b.Toggle && isDown {
			b.ApplyToggle()
		}
		b.SetLastPressed(pressed)
	}

	return events
}
