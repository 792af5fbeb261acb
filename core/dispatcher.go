package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-hal/core/events"
	"github.com/koscakluka/ema-hal/core/generation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type dispatchMetrics struct {
	submitted metric.Int64Counter
	rejected  metric.Int64Counter
	failed    metric.Int64Counter
}

func newDispatchMetrics() dispatchMetrics {
	m := dispatchMetrics{}
	var err error
	if m.submitted, err = meter.Int64Counter("dialogue.dispatch.submitted",
		metric.WithDescription("Utterances sent to the generation service")); err != nil {
		logger.Warn("failed to create dispatch counter", "error", err)
	}
	if m.rejected, err = meter.Int64Counter("dialogue.dispatch.rejected",
		metric.WithDescription("Utterances rejected while a reply was pending")); err != nil {
		logger.Warn("failed to create dispatch counter", "error", err)
	}
	if m.failed, err = meter.Int64Counter("dialogue.dispatch.failed",
		metric.WithDescription("Generation requests that resolved to an error")); err != nil {
		logger.Warn("failed to create dispatch counter", "error", err)
	}
	return m
}

func (m dispatchMetrics) add(ctx context.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

// dispatcher sends utterances to the transport and resolves the matching
// pending agent turn. It is the only writer of the transcript. All methods
// except the request goroutine run on the event loop.
type dispatcher struct {
	transcript *transcript
	transport  Transport
	post       func(func()) bool
	// onResolved receives agent turns resolved with content, in the same
	// loop step as the resolution.
	onResolved func(Turn)
	emitEvent  eventEmitter
	metrics    dispatchMetrics

	// pendingID is the single pending agent turn, empty when idle.
	pendingID     string
	cancelPending context.CancelFunc
}

func newDispatcher(transcript *transcript, transport Transport, post func(func()) bool, onResolved func(Turn)) *dispatcher {
	if isNilCapability(transport) {
		transport = nil
	}
	if onResolved == nil {
		onResolved = func(Turn) {}
	}

	return &dispatcher{
		transcript: transcript,
		transport:  transport,
		post:       post,
		onResolved: onResolved,
		emitEvent:  noopEventEmitter,
		metrics:    newDispatchMetrics(),
	}
}

func (d *dispatcher) busy() bool {
	return d.pendingID != ""
}

// submit appends the user turn and a pending agent turn, then requests the
// reply. Blank utterances are ignored.
func (d *dispatcher) submit(ctx context.Context, utterance string) error {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}
	if d.busy() {
		d.metrics.add(ctx, d.metrics.rejected)
		d.emitEvent(events.NewDispatchRejected(utterance))
		return ErrDispatchBusy
	}
	if d.transport == nil {
		return fmt.Errorf("%w: no generation transport", ErrCapabilityUnavailable)
	}

	var pendingID string
	d.transcript.batch(func() {
		d.transcript.append(newUserTurn(utterance))
		pendingID = d.transcript.append(newPendingAgentTurn())
	})
	d.pendingID = pendingID
	d.metrics.add(ctx, d.metrics.submitted)
	d.emitEvent(events.NewTurnPending(pendingID, utterance))

	requestCtx, cancel := context.WithCancel(ctx)
	d.cancelPending = cancel
	go d.request(requestCtx, pendingID, utterance)

	return nil
}

func (d *dispatcher) request(ctx context.Context, turnID, utterance string) {
	ctx, span := tracer.Start(ctx, "dispatch utterance", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int("utterance.length", len(utterance)),
	))
	defer span.End()

	reply, err := d.transport.Generate(ctx, utterance)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("reply.has_audio", reply.AudioRef != ""))
	}

	d.post(func() { d.complete(ctx, turnID, reply, err) })
}

// complete resolves the pending turn identified by turnID. The lookup is by
// identity so turns appended in the meantime are never touched.
func (d *dispatcher) complete(ctx context.Context, turnID string, reply generation.Reply, err error) {
	if turnID != d.pendingID {
		logger.Warn("dropping reply for a turn that is no longer pending", "turn_id", turnID)
		return
	}
	d.pendingID = ""
	if d.cancelPending != nil {
		d.cancelPending()
		d.cancelPending = nil
	}

	if err != nil {
		d.metrics.add(ctx, d.metrics.failed)
		logger.Warn("failed to generate reply", "turn_id", turnID, "error", err)
		if resolveErr := d.transcript.resolve(turnID, Turn{Text: ErrorText, Status: StatusErrored}); resolveErr != nil {
			logger.Error("failed to resolve errored turn", "turn_id", turnID, "error", resolveErr)
			return
		}
		d.emitEvent(events.NewTurnFailed(turnID, err))
		return
	}

	text := reply.Text
	if strings.TrimSpace(text) == "" {
		text = EmptyReplyText
	}

	d.transcript.batch(func() {
		if resolveErr := d.transcript.resolve(turnID, Turn{Text: text, Status: StatusFinal, AudioRef: reply.AudioRef}); resolveErr != nil {
			logger.Error("failed to resolve turn", "turn_id", turnID, "error", resolveErr)
			return
		}
		d.emitEvent(events.NewTurnCompleted(turnID, text, reply.AudioRef))

		if turn, ok := d.transcript.get(turnID); ok {
			d.onResolved(turn)
		}
	})
}

// cancel abandons the outstanding request, if any. The pending turn stays
// pending because the dialogue is shutting down.
func (d *dispatcher) cancel() {
	if d.cancelPending != nil {
		d.cancelPending()
		d.cancelPending = nil
	}
}

func (d *dispatcher) setEventEmitter(emitEvent eventEmitter) {
	if d == nil {
		return
	}
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	d.emitEvent = emitEvent
}
