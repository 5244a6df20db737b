// Package reveal implements the lock that hides a shared bouquet or letter
// until the recipient performs the unlock interaction chosen by the sender.
//
// A Machine starts Locked (or Revealed for gift type "none") and moves to
// Revealed exactly once. After the reveal the composition shows immediately
// and the letter follows after a short delay.
package reveal

import (
	"math"
	"time"

	"github.com/foruapp/foru/internal/model"
)

// State is the lock state.
type State int

const (
	Locked State = iota
	Revealed
)

func (s State) String() string {
	if s == Revealed {
		return "revealed"
	}
	return "locked"
}

// Effect is the particle effect played on the transition to Revealed.
type Effect string

// Effects.
const (
	EffectNone     Effect = ""
	EffectConfetti Effect = "confetti"
	EffectBurst    Effect = "burst"
)

// Defaults.
const (
	DefaultLetterDelay      = 1200 * time.Millisecond
	DefaultCalmDelay        = 600 * time.Millisecond
	DefaultScratchGrid      = 16
	DefaultScratchRadius    = 6.0
	DefaultScratchThreshold = 0.5
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Machine. Zero values select the defaults.
type Options struct {
	Kind model.Kind
	// Secret checks code submissions. Nil accepts any code.
	Secret Matcher
	Clock  Clock
	// LetterDelay separates the composition from the letter after an
	// interactive reveal. CalmDelay is used instead for gift type "none".
	LetterDelay time.Duration
	CalmDelay   time.Duration
	// ScratchGrid is the number of cells per axis used to measure scratched
	// area. ScratchRadius is the brush radius in canvas percent.
	ScratchGrid      int
	ScratchRadius    float64
	ScratchThreshold float64
}

// Outcome describes the result of one interaction.
type Outcome struct {
	// Changed is true only for the interaction that caused the reveal.
	Changed bool
	// Shake asks the UI to play the wrong-code feedback and clear the input.
	Shake  bool
	Effect Effect
}

// Machine is the reveal state for one viewing of a share record. It is not
// safe for concurrent use.
type Machine struct {
	gift       model.GiftType
	opts       Options
	state      State
	revealedAt time.Time

	scratched []bool
	covered   int
}

// New creates a machine for gift. Unknown gift types behave like "none".
func New(gift model.GiftType, opts Options) *Machine {
	if opts.Kind == "" {
		opts.Kind = model.KindBouquet
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.LetterDelay <= 0 {
		opts.LetterDelay = DefaultLetterDelay
	}
	if opts.CalmDelay <= 0 {
		opts.CalmDelay = DefaultCalmDelay
	}
	if opts.ScratchGrid < 1 {
		opts.ScratchGrid = DefaultScratchGrid
	}
	if opts.ScratchRadius <= 0 {
		opts.ScratchRadius = DefaultScratchRadius
	}
	if opts.ScratchThreshold <= 0 || opts.ScratchThreshold > 1 {
		opts.ScratchThreshold = DefaultScratchThreshold
	}
	if !gift.Valid() {
		gift = model.GiftNone
	}

	m := &Machine{gift: gift, opts: opts}
	if gift == model.GiftNone {
		m.state = Revealed
		m.revealedAt = opts.Clock.Now()
	}
	if gift == model.GiftScratch {
		m.scratched = make([]bool, opts.ScratchGrid*opts.ScratchGrid)
	}
	return m
}

// GiftType returns the gift type driving this machine.
func (m *Machine) GiftType() model.GiftType { return m.gift }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Revealed reports whether the machine is in the terminal state.
func (m *Machine) Revealed() bool { return m.state == Revealed }

// RevealedAt returns when the reveal happened, or the zero time.
func (m *Machine) RevealedAt() time.Time { return m.revealedAt }

// Resume puts the machine straight into Revealed at time at, without an
// effect. It is used when a viewer already unlocked the record earlier.
func (m *Machine) Resume(at time.Time) {
	if m.state == Revealed {
		return
	}
	m.state = Revealed
	m.revealedAt = at
}

// Tap handles a single tap. It unlocks envelope and surprise gifts.
func (m *Machine) Tap() Outcome {
	switch m.gift {
	case model.GiftEnvelope:
		return m.reveal(EffectConfetti)
	case model.GiftSurprise:
		return m.reveal(EffectBurst)
	}
	return Outcome{}
}

// Point is a pointer sample in canvas percent.
type Point struct {
	X, Y float64
}

// Scratch records one pointer movement sample on a scratch card. The card
// unlocks once the scratched share of its area reaches the threshold.
func (m *Machine) Scratch(p Point) Outcome {
	if m.gift != model.GiftScratch || m.state == Revealed {
		return Outcome{}
	}
	m.mark(p)
	if m.Progress() >= m.opts.ScratchThreshold {
		return m.reveal(EffectConfetti)
	}
	return Outcome{}
}

// ScratchPath records a batch of samples, stopping at the reveal.
func (m *Machine) ScratchPath(points []Point) Outcome {
	for _, p := range points {
		if out := m.Scratch(p); out.Changed {
			return out
		}
	}
	return Outcome{}
}

// Progress returns the scratched fraction of the card in [0, 1].
func (m *Machine) Progress() float64 {
	if m.gift != model.GiftScratch {
		if m.state == Revealed {
			return 1
		}
		return 0
	}
	if m.state == Revealed {
		return 1
	}
	return float64(m.covered) / float64(len(m.scratched))
}

// SubmitCode checks a candidate code. A match, or a record without a secret,
// unlocks. Anything else leaves the machine locked and asks for the shake
// feedback; there is no attempt limit.
func (m *Machine) SubmitCode(candidate string) Outcome {
	if m.gift != model.GiftCode || m.state == Revealed {
		return Outcome{}
	}
	if m.opts.Secret == nil || m.opts.Secret.Match(candidate) {
		return m.reveal(EffectConfetti)
	}
	return Outcome{Shake: true}
}

func (m *Machine) reveal(effect Effect) Outcome {
	if m.state == Revealed {
		return Outcome{}
	}
	m.state = Revealed
	m.revealedAt = m.opts.Clock.Now()
	return Outcome{Changed: true, Effect: effect}
}

func (m *Machine) mark(p Point) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return
	}
	n := m.opts.ScratchGrid
	cell := 100.0 / float64(n)
	r := m.opts.ScratchRadius

	minCol := max(0, int((p.X-r)/cell))
	maxCol := min(n-1, int((p.X+r)/cell))
	minRow := max(0, int((p.Y-r)/cell))
	maxRow := min(n-1, int((p.Y+r)/cell))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			cx := (float64(col) + 0.5) * cell
			cy := (float64(row) + 0.5) * cell
			if math.Hypot(cx-p.X, cy-p.Y) > r {
				continue
			}
			i := row*n + col
			if !m.scratched[i] {
				m.scratched[i] = true
				m.covered++
			}
		}
	}
}

// View is what the share page should display at a moment in time.
type View struct {
	State           State
	ShowComposition bool
	// ShowLetter is true once the letter delay has elapsed; LetterIn is the
	// remaining delay, zero once shown.
	ShowLetter bool
	LetterIn   time.Duration
	Progress   float64
}

// View returns the display state at the machine clock's current time.
func (m *Machine) View() View {
	v := View{State: m.state, Progress: m.Progress()}
	if m.state != Revealed {
		return v
	}

	v.ShowComposition = m.opts.Kind == model.KindBouquet

	delay := m.opts.LetterDelay
	if m.gift == model.GiftNone {
		delay = m.opts.CalmDelay
	}
	elapsed := m.opts.Clock.Now().Sub(m.revealedAt)
	if elapsed >= delay {
		v.ShowLetter = true
	} else {
		v.LetterIn = delay - elapsed
	}
	return v
}
