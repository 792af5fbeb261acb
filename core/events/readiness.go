package events

// KindReadinessChanged identifies a change of the ready indicator.
const KindReadinessChanged Kind = "readiness.changed"

// ReadinessChanged carries the new ready state: no reply pending and the
// latest reply fully revealed.
type ReadinessChanged struct {
	Base
	Ready bool
}

// NewReadinessChanged creates a readiness changed event.
func NewReadinessChanged(ready bool) ReadinessChanged {
	return ReadinessChanged{Base: NewBase(KindReadinessChanged), Ready: ready}
}
