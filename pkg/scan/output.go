package scan

import (
	"github.com/OpenTraceLab/spibutton/pkg/bitorder"
	"github.com/OpenTraceLab/spibutton/pkg/button"
)

// encodeOutputs computes every lamp for the current scan and packs it into
// the transmit buffer at bit position id.
func (c *Controller) encodeOutputs() {
	for i := range c.buttons {
		b := &c.buttons[i]
		b.SetLamp(c.lampFor(*b))
		bitorder.SetBit(c.xmitBuf, i, b.LampOn())
	}
}

// lampFor returns the lamp output of b for the current scan. Flashing lamps
// invert their previous output on scans that are a multiple of their period.
func (c *Controller) lampFor(b button.Button) bool {
	switch b.State {
	case button.StateOn:
		return true
	case button.StateFlash1:
		return flash(b.LampOn(), c.scans, c.timing.FlashSlowPeriod)
	case button.StateFlash2:
		return flash(b.LampOn(), c.scans, c.timing.FlashFastPeriod)
	default:
		return false
	}
}

func flash(prev bool, scans, period uint32) bool {
	if scans%period == 0 {
		return !prev
	}
	return prev
}
