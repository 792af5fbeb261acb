package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-hal/core/events"
	"github.com/koscakluka/ema-hal/core/generation"
	"github.com/koscakluka/ema-hal/core/speechtotext"
)

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

func syncPost(fn func()) bool {
	fn()
	return true
}

// manualTimer fires scheduled callbacks only when the test asks it to.
type manualTimer struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	timer   *manualTimer
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) AfterFunc(d time.Duration, fn func()) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()

	task := &manualTask{timer: t, delay: d, fn: fn}
	t.tasks = append(t.tasks, task)
	return task
}

func (task *manualTask) Stop() bool {
	task.timer.mu.Lock()
	defer task.timer.mu.Unlock()

	if task.fired || task.stopped {
		return false
	}
	task.stopped = true
	return true
}

// fireNext runs the oldest scheduled callback that was neither stopped nor
// fired. It reports false when nothing is scheduled.
func (t *manualTimer) fireNext() bool {
	t.mu.Lock()
	var next *manualTask
	for _, task := range t.tasks {
		if !task.fired && !task.stopped {
			next = task
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	t.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}

func (t *manualTimer) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, task := range t.tasks {
		if !task.fired && !task.stopped {
			count++
		}
	}
	return count
}

func (t *manualTimer) delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	delays := make([]time.Duration, 0, len(t.tasks))
	for _, task := range t.tasks {
		delays = append(delays, task.delay)
	}
	return delays
}

func (t *manualTimer) lastTask() *manualTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.tasks) == 0 {
		return nil
	}
	return t.tasks[len(t.tasks)-1]
}

// scriptedTransport answers every request with the next queued result. A
// request without a queued result blocks until one is released.
type scriptedTransport struct {
	mu         sync.Mutex
	utterances []string
	results    chan transportResult
}

type transportResult struct {
	reply generation.Reply
	err   error
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{results: make(chan transportResult, 8)}
}

func (s *scriptedTransport) reply(text, audioRef string) {
	s.results <- transportResult{reply: generation.Reply{Text: text, AudioRef: audioRef}}
}

func (s *scriptedTransport) fail(err error) {
	s.results <- transportResult{err: err}
}

func (s *scriptedTransport) Generate(ctx context.Context, utterance string) (generation.Reply, error) {
	s.mu.Lock()
	s.utterances = append(s.utterances, utterance)
	s.mu.Unlock()

	select {
	case result := <-s.results:
		return result.reply, result.err
	case <-ctx.Done():
		return generation.Reply{}, ctx.Err()
	}
}

func (s *scriptedTransport) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.utterances...)
}

// scriptedRecognizer exposes the callbacks of the latest recognition pass.
// When connecting is set, Start blocks until it is closed.
type scriptedRecognizer struct {
	mu         sync.Mutex
	passes     []speechtotext.RecognitionOptions
	stops      int
	startErr   error
	connecting chan struct{}
}

func (r *scriptedRecognizer) Start(_ context.Context, opts ...speechtotext.RecognitionOption) error {
	r.mu.Lock()
	connecting := r.connecting
	r.mu.Unlock()
	if connecting != nil {
		<-connecting
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.passes = append(r.passes, speechtotext.NewRecognitionOptions(opts...))
	return nil
}

func (r *scriptedRecognizer) failStarts(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

func (r *scriptedRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *scriptedRecognizer) pass(i int) speechtotext.RecognitionOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes[i]
}

func (r *scriptedRecognizer) passCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

func (r *scriptedRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func (r *scriptedRecognizer) finalResult(i int, text string) {
	r.pass(i).ResultCallback([]speechtotext.Hypothesis{{Text: text, IsFinal: true}})
}

// recordingPlayer records every call in order.
type recordingPlayer struct {
	mu        sync.Mutex
	calls     []string
	loadErr   error
	playErr   error
	onFailure func(ref string, err error)
}

func (p *recordingPlayer) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *recordingPlayer) Load(ref string) error {
	p.record("load:" + ref)
	return p.loadErr
}

func (p *recordingPlayer) Play() error {
	p.record("play")
	return p.playErr
}

func (p *recordingPlayer) Mute(muted bool) {
	if muted {
		p.record("mute:true")
		return
	}
	p.record("mute:false")
}

func (p *recordingPlayer) Stop() {
	p.record("stop")
}

func (p *recordingPlayer) SetFailureCallback(callback func(ref string, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailure = callback
}

func (p *recordingPlayer) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.calls...)
}

func (p *recordingPlayer) count(call string) int {
	count := 0
	for _, recorded := range p.recorded() {
		if recorded == call {
			count++
		}
	}
	return count
}

// eventRecorder collects emitted events. It is safe for concurrent use.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) count(kind events.Kind) int {
	count := 0
	for _, recorded := range r.kinds() {
		if recorded == kind {
			count++
		}
	}
	return count
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

var errTransportDown = errors.New("connection refused")
