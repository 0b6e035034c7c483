// Package scan runs the scan cycle of a shift-register button/lamp panel.
//
// A panel is one linear chain of N cells. Each cell pairs a lamp, driven by a
// serial-to-parallel register, with a button, sampled by a parallel-to-serial
// register. One scan writes one lamp bit per cell and reads back one button
// bit per cell in a single full-duplex exchange.
//
// # Usage
//
//	tr, err := spi.Open("spidev", "/dev/spidev1.0", spi.DefaultConfig(), logger)
//	ctl, err := scan.NewController(tr, 20)
//
//	b := button.New(button.StateOff)
//	b.Toggle, b.NotifyChange, b.NotifyHold = true, true, true
//	for i := 0; i < ctl.Len(); i++ {
//		ctl.SetButton(i, b)
//	}
//
//	for {
//		events, err := ctl.Scan()
//		...
//		time.Sleep(100 * time.Millisecond)
//	}
//
// # Scan cycle
//
// Scan runs the output encoder over every cell, bit-reverses the transmit
// buffer, exchanges it, bit-reverses the response and runs the input decoder
// over every cell. Button inputs are active low: a clear bit is a pressed
// button.
//
// # Events
//
// Events are value snapshots of a cell taken when the event fired. Changing
// a returned snapshot has no effect until it is written back with SetButton.
// Hold events repeat on every scan while the button stays down past the hold
// threshold; call ClearHold after handling one to restart the count.
//
// # Pacing
//
// The controller imposes no timing. The caller decides how often to scan,
// and flash periods and the hold threshold are counted in scans.
package scan
