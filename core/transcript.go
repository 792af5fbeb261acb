package dialogue

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// transcript is the ordered turn log. The dispatcher is its only writer;
// renderers read it through snapshots and subscriptions.
type transcript struct {
	mu sync.RWMutex

	turns []Turn
	index map[string]int

	subscribers  map[int]func([]Turn)
	nextSubID    int
	batchDepth   int
	pendingNotif bool
}

func newTranscript() *transcript {
	return &transcript{
		index:       map[string]int{},
		subscribers: map[int]func([]Turn){},
	}
}

// append adds turn to the end of the log and returns its stable ID.
func (t *transcript) append(turn Turn) string {
	t.mu.Lock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	t.index[turn.ID] = len(t.turns)
	t.turns = append(t.turns, turn)
	t.mu.Unlock()

	t.changed()
	return turn.ID
}

// resolve replaces the pending turn at id with final. Speaker, identity and
// creation time of the stored turn are kept.
func (t *transcript) resolve(id string, final Turn) error {
	t.mu.Lock()
	i, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTurnNotFound, id)
	}

	current := t.turns[i]
	if current.Status != StatusPending {
		t.mu.Unlock()
		return fmt.Errorf("%w: turn %s is %s", ErrInvalidTransition, id, current.Status)
	}
	if final.Status == StatusPending {
		t.mu.Unlock()
		return fmt.Errorf("%w: turn %s cannot be resolved to pending", ErrInvalidTransition, id)
	}

	final.ID = current.ID
	final.Speaker = current.Speaker
	final.CreatedAt = current.CreatedAt
	t.turns[i] = final
	t.mu.Unlock()

	t.changed()
	return nil
}

func (t *transcript) get(id string) (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[id]
	if !ok {
		return Turn{}, false
	}
	return t.turns[i], true
}

// snapshot returns a copy of the log; later mutations do not affect it.
func (t *transcript) snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Clone(t.turns)
}

// subscribe registers fn to receive a snapshot after every change.
func (t *transcript) subscribe(fn func([]Turn)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}

// batch runs fn and delivers at most one notification for all mutations made
// inside it.
func (t *transcript) batch(fn func()) {
	t.mu.Lock()
	t.batchDepth++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.batchDepth--
		flush := t.batchDepth == 0 && t.pendingNotif
		if flush {
			t.pendingNotif = false
		}
		t.mu.Unlock()

		if flush {
			t.notify()
		}
	}()

	fn()
}

func (t *transcript) changed() {
	t.mu.Lock()
	if t.batchDepth > 0 {
		t.pendingNotif = true
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.notify()
}

func (t *transcript) notify() {
	t.mu.RLock()
	turns := slices.Clone(t.turns)
	ids := make([]int, 0, len(t.subscribers))
	for id := range t.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subscribers := make([]func([]Turn), 0, len(ids))
	for _, id := range ids {
		subscribers = append(subscribers, t.subscribers[id])
	}
	t.mu.RUnlock()

	for _, subscriber := range subscribers {
		subscriber(slices.Clone(turns))
	}
}
