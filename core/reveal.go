package dialogue

import (
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// DefaultRevealSpeed is the delay between two revealed characters.
const DefaultRevealSpeed = 50 * time.Millisecond

type revealStatus struct {
	TurnID string
	Done   bool
}

// revealState belongs to exactly one reveal run. A cancelled state never
// produces another frame or completion, even if its timer already fired.
type revealState struct {
	turnID    string
	units     []string
	position  int
	speed     time.Duration
	cancelled bool

	onFrame func(string)
	onDone  func()
	pending Stopper
}

// revealer discloses text one user-perceived character at a time. At most
// one reveal is active; starting a new one cancels the previous.
type revealer struct {
	timer  Timer
	active *revealState
	last   revealStatus
}

func newRevealer(timer Timer) *revealer {
	if timer == nil {
		timer = systemTimer{}
	}
	return &revealer{timer: timer}
}

func (r *revealer) reveal(turnID, fullText string, speed time.Duration, onFrame func(string), onDone func()) {
	r.cancel()

	if onFrame == nil {
		onFrame = func(string) {}
	}
	if onDone == nil {
		onDone = func() {}
	}
	if speed < 0 {
		speed = 0
	}

	state := &revealState{
		turnID:  turnID,
		units:   graphemes(fullText),
		speed:   speed,
		onFrame: onFrame,
		onDone:  onDone,
	}
	r.active = state
	r.last = revealStatus{TurnID: turnID}
	r.schedule(state, 0)
}

// cancel stops the active reveal. onDone of a cancelled reveal is never
// invoked. Safe to call at any time.
func (r *revealer) cancel() {
	state := r.active
	if state == nil {
		return
	}

	state.cancelled = true
	if state.pending != nil {
		state.pending.Stop()
		state.pending = nil
	}
	r.active = nil
}

func (r *revealer) status() revealStatus {
	return r.last
}

func (r *revealer) schedule(state *revealState, delay time.Duration) {
	state.pending = r.timer.AfterFunc(delay, func() { r.tick(state) })
}

func (r *revealer) tick(state *revealState) {
	if state.cancelled || r.active != state {
		return
	}
	state.pending = nil

	if state.position < len(state.units) {
		state.position++
		state.onFrame(strings.Join(state.units[:state.position], ""))
		if state.cancelled {
			return
		}
	}

	if state.position < len(state.units) {
		r.schedule(state, state.speed)
		return
	}

	r.active = nil
	r.last.Done = true
	state.onDone()
}

func graphemes(text string) []string {
	units := []string{}
	state := -1
	for len(text) > 0 {
		var cluster string
		cluster, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
		units = append(units, cluster)
	}
	return units
}
