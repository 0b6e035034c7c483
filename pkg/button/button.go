// Package button models one button/lamp cell of a shift-register panel.
package button

// Button is the state and behavior flags of one physical button/lamp pair.
//
// Values are copied freely: the scan controller hands out snapshots, and a
// change only takes effect once it is written back with SetButton.
type Button struct {
	id int

	// State is the primary lamp state.
	State State

	// Toggle flips State on every fresh press.
	Toggle bool
	// NotifyChange emits an event on every press and release edge.
	NotifyChange bool
	// NotifyHold emits an event on every scan once the hold threshold is exceeded.
	NotifyHold bool

	lampOn       bool
	holdEvent    bool
	lastPressed  bool
	pressedScans uint32
}

// New returns a button in the given state with all flags clear.
func New(state State) Button {
	return Button{State: state}
}

// ID is the chain position assigned when the button was registered.
func (b Button) ID() int {
	return b.id
}

// WithID returns a copy of b bound to chain position id. Only the scan
// controller assigns identities.
func (b Button) WithID(id int) Button {
	b.id = id
	return b
}

// SetState replaces the primary state, leaving every behavior flag untouched.
func (b *Button) SetState(s State) {
	b.State = s
}

// LampOn reports the lamp output computed during the last scan.
func (b Button) LampOn() bool {
	return b.lampOn
}

// SetLamp records the computed lamp output. Only the output encoder calls it.
func (b *Button) SetLamp(on bool) {
	b.lampOn = on
}

// IsHoldEvent reports whether this snapshot was emitted for a hold rather
// than a press or release edge.
func (b Button) IsHoldEvent() bool {
	return b.holdEvent
}

// SetHoldEvent marks or clears the hold event flag.
func (b *Button) SetHoldEvent(on bool) {
	b.holdEvent = on
}

// LastPressed is the raw sample of the previous scan.
func (b Button) LastPressed() bool {
	return b.lastPressed
}

// SetLastPressed stores the raw sample for the next scan's edge detection.
func (b *Button) SetLastPressed(pressed bool) {
	b.lastPressed = pressed
}

// PressedScans is the number of consecutive scans the button was sampled pressed.
func (b Button) PressedScans() uint32 {
	return b.pressedScans
}

// Sample updates the consecutive pressed counter with this scan's raw sample.
func (b *Button) Sample(pressed bool) {
	if pressed {
		b.pressedScans++
	} else {
		b.pressedScans = 0
	}
}

// ClearHold resets the pressed counter, stopping repeated hold events until
// the button is held past the threshold again.
func (b *Button) ClearHold() {
	b.pressedScans = 0
}

// ApplyToggle applies the toggle rule: Off becomes On, any lit state becomes Off.
func (b *Button) ApplyToggle() {
	switch b.State {
	case StateOff:
		b.State = StateOn
	case StateOn, StateFlash1, StateFlash2:
		b.State = StateOff
	}
}
