package dialogue

import "github.com/koscakluka/ema-hal/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// newCallbackEventEmitter routes reveal frames and readiness changes to the
// narrow callbacks before forwarding every event to next.
func newCallbackEventEmitter(onReveal func(turnID, text string), onReady func(bool), next eventEmitter) eventEmitter {
	if next == nil {
		next = noopEventEmitter
	}

	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.RevealFrame:
			if onReveal != nil {
				onReveal(typedEvent.TurnID, typedEvent.Text)
			}
		case events.ReadinessChanged:
			if onReady != nil {
				onReady(typedEvent.Ready)
			}
		}
		next(event)
	}
}
