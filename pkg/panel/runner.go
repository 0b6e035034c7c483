package panel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OpenTraceLab/spibutton/pkg/button"
	"github.com/OpenTraceLab/spibutton/pkg/scan"
)

var (
	// ErrExpectation is wrapped by every failed expect statement.
	ErrExpectation = errors.New("panel: expectation failed")
	// ErrInjectedFault is the error a fail statement injects into the link.
	ErrInjectedFault = errors.New("panel: injected link fault")
)

// Runner executes scripts against a controller whose transport is the
// simulator's link.
type Runner struct {
	Controller *scan.Controller
	Panel      *Simulator
	Log        *slog.Logger

	lastEvents []button.Button
	faultArmed bool
}

// NewRunner returns a runner for ctl and sim. A nil logger discards.
func NewRunner(ctl *scan.Controller, sim *Simulator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{Controller: ctl, Panel: sim, Log: logger}
}

// Run executes every statement of s in order and stops at the first error.
func (r *Runner) Run(s *Script) error {
	for _, st := range s.Statements {
		if err := r.exec(st); err != nil {
			return fmt.Errorf("%s: %w", st.Pos, err)
		}
	}
	r.Log.Info("script finished", "script", s.Name, "statements", len(s.Statements), "scans", r.Controller.Scans())
	return nil
}

func (r *Runner) exec(st *Statement) error {
	switch {
	case st.Press != nil:
		return r.Panel.Press(*st.Press)
	case st.Release != nil:
		return r.Panel.Release(*st.Release)
	case st.Clear != nil:
		return r.Controller.ClearHold(*st.Clear)
	case st.Scan != nil:
		return r.scan(st.Scan.Scans())
	case st.Set != nil:
		return r.set(st.Set)
	case st.Fail:
		r.Panel.Fail(ErrInjectedFault)
		r.faultArmed = true
		return nil
	case st.Expect != nil:
		return r.expect(st.Expect)
	}
	return fmt.Errorf("panel: empty statement")
}

func (r *Runner) scan(n int) error {
	r.lastEvents = nil
	for i := 0; i < n; i++ {
		events, err := r.Controller.Scan()
		if err != nil {
			var te *scan.TransportError
			if r.faultArmed && errors.As(err, &te) && errors.Is(err, ErrInjectedFault) {
				r.faultArmed = false
				r.Log.Debug("injected fault consumed", "scan", te.Scan)
				continue
			}
			return err
		}
		r.lastEvents = append(r.lastEvents, events...)
	}
	return nil
}

func (r *Runner) set(s *SetStmt) error {
	state, err := button.ParseState(s.State)
	if err != nil {
		return err
	}
	b, err := r.Controller.Button(s.Cell)
	if err != nil {
		return err
	}
	b.SetState(state)
	b.Toggle, b.NotifyChange, b.NotifyHold = false, false, false
	for _, f := range s.Flags {
		switch strings.ToLower(f) {
		case "toggle":
			b.Toggle = true
		case "change":
			b.NotifyChange = true
		case "hold":
			b.NotifyHold = true
		}
	}
	return r.Controller.SetButton(s.Cell, b)
}

func (r *Runner) expect(e *Expectation) error {
	switch {
	case e.State != nil:
		want, err := button.ParseState(e.State.State)
		if err != nil {
			return err
		}
		b, err := r.Controller.Button(e.State.Cell)
		if err != nil {
			return err
		}
		if b.State != want {
			return fmt.Errorf("%w: cell %d state is %s, want %s", ErrExpectation, e.State.Cell, b.State, want)
		}
	case e.Lamp != nil:
		if e.Lamp.Cell < 0 || e.Lamp.Cell >= r.Panel.Len() {
			return fmt.Errorf("panel: cell %d out of range [0, %d)", e.Lamp.Cell, r.Panel.Len())
		}
		want := strings.EqualFold(e.Lamp.Lit, "on")
		if got := r.Panel.Lamp(e.Lamp.Cell); got != want {
			return fmt.Errorf("%w: cell %d lamp is %s, want %s", ErrExpectation, e.Lamp.Cell, onOff(got), onOff(want))
		}
	case e.Events != nil:
		got := countEvents(r.lastEvents, e.Events.Cell, strings.ToLower(e.Events.Kind))
		if got != e.Events.Count {
			kind := e.Events.Kind
			if kind == "" {
				kind = "any"
			}
			return fmt.Errorf("%w: cell %d produced %d %s events, want %d", ErrExpectation, e.Events.Cell, got, kind, e.Events.Count)
		}
	case e.Scans != nil:
		if got := r.Controller.Scans(); got != uint32(*e.Scans) {
			return fmt.Errorf("%w: %d scans completed, want %d", ErrExpectation, got, *e.Scans)
		}
	}
	return nil
}

func countEvents(events []button.Button, cell int, kind string) int {
	n := 0
	for _, ev := range events {
		if ev.ID() != cell {
			continue
		}
		switch kind {
		case "change":
			if ev.IsHoldEvent() {
				continue
			}
		case "hold":
			if !ev.IsHoldEvent() {
				continue
			}
		}
		n++
	}
	return n
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
