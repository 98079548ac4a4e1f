package repcheck

// Phase is the position label of the rep state machine.
type Phase string

const (
	PhaseUp   Phase = "up"
	PhaseDown Phase = "down"
)

// Direction says which way the primary signal moves to enter the active
// phase.
type Direction int

const (
	// Rising: the active phase starts when the signal climbs above the enter
	// threshold and ends when it falls below the exit threshold.
	Rising Direction = iota
	// Falling: the active phase starts when the signal drops below the enter
	// threshold and ends when it climbs above the exit threshold.
	Falling
)

// RangeCalibrator tracks the running [min, max] of the primary signal. The
// first observation seeds both bounds; afterwards they only widen.
type RangeCalibrator struct {
	min, max float64
	seeded   bool
}

func (c *RangeCalibrator) Observe(v float64) {
	if !c.seeded {
		c.min, c.max = v, v
		c.seeded = true
		return
	}
	if v < c.min {
		c.min = v
	}
	if v > c.max {
		c.max = v
	}
}

// Bounds returns the current range and whether any value was observed.
func (c RangeCalibrator) Bounds() (min, max float64, ok bool) {
	return c.min, c.max, c.seeded
}

// Threshold is min + fraction*(max-min). A degenerate range collapses to the
// single known value.
func (c RangeCalibrator) Threshold(fraction float64) float64 {
	span := c.max - c.min
	if span <= 0 {
		return c.min
	}
	return c.min + fraction*span
}

// PhaseMachine is the two-state hysteresis machine. It starts at rest.
type PhaseMachine struct {
	rest, active  Phase
	direction     Direction
	enterFraction float64
	exitFraction  float64
	inActive      bool
}

func NewPhaseMachine(ex Exercise) PhaseMachine {
	return PhaseMachine{
		rest:          ex.RestPhase,
		active:        ex.ActivePhase,
		direction:     ex.Direction,
		enterFraction: ex.EnterFraction,
		exitFraction:  ex.ExitFraction,
	}
}

func (m *PhaseMachine) Phase() Phase {
	if m.inActive {
		return m.active
	}
	return m.rest
}

func (m *PhaseMachine) Active() bool {
	return m.inActive
}

// Thresholds returns the current enter and exit trigger values.
func (m *PhaseMachine) Thresholds(cal RangeCalibrator) (enter, exit float64) {
	return cal.Threshold(m.enterFraction), cal.Threshold(m.exitFraction)
}

// Opens moves the machine into the active phase when v crosses the enter
// threshold while at rest.
func (m *PhaseMachine) Opens(v float64, cal RangeCalibrator) bool {
	if m.inActive {
		return false
	}
	t := cal.Threshold(m.enterFraction)
	crossed := v > t
	if m.direction == Falling {
		crossed = v < t
	}
	if crossed {
		m.inActive = true
	}
	return crossed
}

// Closes returns the machine to rest when v crosses the exit threshold
// while active.
func (m *PhaseMachine) Closes(v float64, cal RangeCalibrator) bool {
	if !m.inActive {
		return false
	}
	t := cal.Threshold(m.exitFraction)
	crossed := v < t
	if m.direction == Falling {
		crossed = v > t
	}
	if crossed {
		m.inActive = false
	}
	return crossed
}
