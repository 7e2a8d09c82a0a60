// Package promptgen turns an agent description into a streamed system prompt.
//
// A Proxy validates a GenerationRequest, renders the instruction for the selected
// framework and relays the provider's text fragments through a Stream. Failures
// before the first fragment are returned as errors; failures after output was
// produced end the stream with an in-band ErrorNotice fragment.
package promptgen

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/util"
)

// Provider is a streaming text-generation backend. genai.Client implements it.
type Provider interface {
	StreamChat(ctx context.Context, systemPrompt, userPrompt string) (genai.ChunkStream, error)
}

// Recorder receives a receipt for every generation. store.Store implements it.
type Recorder interface {
	AddReceipt(r models.GenerationReceipt) error
}

// Opts holds proxy configuration.
type Opts struct {
	Recorder Recorder
	Now      func() time.Time
}

// Option configures a Proxy.
type Option func(*Opts)

// WithRecorder stores a receipt for every generation.
func WithRecorder(r Recorder) Option {
	return func(o *Opts) {
		o.Recorder = r
	}
}

// WithClock overrides time.Now for receipts.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Proxy relays generated system prompts from a Provider.
type Proxy struct {
	provider Provider
	recorder Recorder
	now      func() time.Time
}

// NewProxy creates a proxy over the given provider.
func NewProxy(provider Provider, opts ...Option) *Proxy {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Proxy{
		provider: provider,
		recorder: cfg.Recorder,
		now:      cfg.Now,
	}
}

// event is one item passed from the producer goroutine to the Stream.
type event struct {
	text string
	err  error
}

// Generate validates req and starts a generation. Every call contacts the
// provider; nothing is cached. It blocks until the first fragment (or the end of
// an empty stream) arrives so that a provider failure before any output is
// returned as a ProviderError. The returned Stream must be closed.
func (p *Proxy) Generate(ctx context.Context, req models.GenerationRequest) (*Stream, error) {
	if field := req.MissingField(); field != "" {
		slog.Warn("Proxy.Generate: rejected request", "missingField", field)
		return nil, &MissingFieldError{Field: field}
	}

	rec := models.GenerationReceipt{
		ID:        util.GenerateReceiptID(),
		Framework: req.Framework,
		AgentName: req.AgentName,
		StartedAt: p.now(),
	}
	if _, known := LookupFramework(req.Framework); !known {
		slog.Debug("Proxy.Generate: unknown framework, using fallback description", "framework", req.Framework)
	}

	slog.Info("Proxy.Generate: starting generation", "receiptID", rec.ID, "framework", req.Framework, "agentName", req.AgentName)
	ctx, cancel := context.WithCancel(ctx)
	chunks, err := p.provider.StreamChat(ctx, SystemInstruction, BuildInstruction(req))
	if err != nil {
		cancel()
		slog.Error("Proxy.Generate: provider failed before streaming", "receiptID", rec.ID, "error", err)
		rec.Status = models.GenerationFailed
		p.record(rec)
		return nil, &ProviderError{Cause: err}
	}

	events := make(chan event)
	closed := make(chan struct{})
	done := make(chan struct{})
	go p.produce(ctx, chunks, events, closed, done, rec)

	s := &Stream{events: events, cancel: cancel, closed: closed, done: done}
	first, ok := <-events
	if !ok {
		// Either the provider produced nothing or ctx ended first.
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.Close()
			return nil, ctxErr
		}
		return s, nil
	}
	if first.err != nil {
		s.Close()
		return nil, &ProviderError{Cause: first.err}
	}
	s.pending, s.hasPending = first.text, true
	return s, nil
}

// produce forwards fragments one at a time until the provider finishes, fails or
// the consumer closes the Stream. When ctx ends while the consumer is still
// reading, the output is cut short like any other mid-stream failure and ends
// with ErrorNotice. The provider stream is closed on every exit path.
func (p *Proxy) produce(ctx context.Context, chunks genai.ChunkStream, out chan<- event, closed <-chan struct{}, done chan<- struct{}, rec models.GenerationReceipt) {
	defer close(done)
	defer func() {
		rec.FinishedAt = p.now()
		p.record(rec)
	}()
	defer close(out)
	defer chunks.Close()

	send := func(ev event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// deliver ignores ctx so the notice still reaches a consumer that outlives it.
	deliver := func(ev event) bool {
		select {
		case out <- ev:
			return true
		case <-closed:
			return false
		}
	}
	interrupt := func(err error) {
		rec.Status = models.GenerationInterrupted
		slog.Error("Proxy.produce: stream interrupted", "receiptID", rec.ID, "fragments", rec.Fragments, "error", err)
		if deliver(event{text: ErrorNotice}) {
			rec.Fragments++
			rec.Bytes += len(ErrorNotice)
		}
	}

	for chunks.Next() {
		fragment := chunks.Current()
		if !send(event{text: fragment}) {
			if consumerClosed(closed) || rec.Fragments == 0 {
				slog.Debug("Proxy.produce: consumer stopped reading", "receiptID", rec.ID, "fragments", rec.Fragments)
				rec.Status = models.GenerationCancelled
				return
			}
			interrupt(context.Cause(ctx))
			return
		}
		rec.Fragments++
		rec.Bytes += len(fragment)
	}

	err := chunks.Err()
	switch {
	case err == nil:
		rec.Status = models.GenerationCompleted
		slog.Info("Proxy.produce: generation completed", "receiptID", rec.ID, "fragments", rec.Fragments, "bytes", rec.Bytes)
	case consumerClosed(closed), ctx.Err() != nil && rec.Fragments == 0:
		rec.Status = models.GenerationCancelled
		slog.Debug("Proxy.produce: generation cancelled", "receiptID", rec.ID, "error", err)
	case rec.Fragments == 0:
		rec.Status = models.GenerationFailed
		slog.Error("Proxy.produce: provider failed before first fragment", "receiptID", rec.ID, "error", err)
		send(event{err: err})
	default:
		interrupt(err)
	}
}

func consumerClosed(closed <-chan struct{}) bool {
	select {
	case <-closed:
		return true
	default:
		return false
	}
}

func (p *Proxy) record(rec models.GenerationReceipt) {
	if p.recorder == nil {
		return
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = p.now()
	}
	if err := p.recorder.AddReceipt(rec); err != nil {
		slog.Error("Proxy.record: failed to store generation receipt", "receiptID", rec.ID, "error", err)
	}
}

// Stream is a lazy, finite, non-restartable sequence of text fragments in
// arrival order. It is not safe for concurrent use.
type Stream struct {
	events <-chan event
	cancel context.CancelFunc
	closed chan struct{}
	done   <-chan struct{}

	pending    string
	hasPending bool
	current    string
	closeOnce  sync.Once
}

// Next blocks until the next fragment is available. It returns false once the
// sequence has ended.
func (s *Stream) Next() bool {
	if s.hasPending {
		s.current, s.pending, s.hasPending = s.pending, "", false
		return true
	}
	ev, ok := <-s.events
	if !ok || ev.err != nil {
		return false
	}
	s.current = ev.text
	return true
}

// Current returns the fragment Next advanced to.
func (s *Stream) Current() string {
	return s.current
}

// Close stops the producer if it is still running and waits until the provider
// connection has been released. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.cancel()
		<-s.done
	})
	return nil
}

// All returns the remaining fragments as an iterator. The stream is closed when
// the loop ends, including on break.
func (s *Stream) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Current()) {
				return
			}
		}
	}
}

// ReadAll concatenates the remaining fragments and closes the stream.
func (s *Stream) ReadAll() string {
	var sb strings.Builder
	for fragment := range s.All() {
		sb.WriteString(fragment)
	}
	return sb.String()
}
