// Package testutil provides a scripted text-generation provider and HTTP helpers
// shared by AgentForm tests.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/models"
)

// EndlessFragment is emitted by an Endless provider on every Next.
const EndlessFragment = "tick "

// Provider is a scripted genai provider. Zero value streams nothing and succeeds.
type Provider struct {
	// Fragments are emitted in order.
	Fragments []string
	// Endless emits EndlessFragment until the context ends.
	Endless bool
	// FailErr, when set, ends the stream with that error once FailAfter
	// fragments have been emitted.
	FailAfter int
	FailErr   error
	// OpenErr fails StreamChat itself.
	OpenErr error
	// Block makes Next wait for the context to end.
	Block bool

	calls      atomic.Int32
	mu         sync.Mutex
	lastSystem string
	lastUser   string
	streams    []*Stream
}

// NewProvider returns a provider that emits fragments and finishes cleanly.
func NewProvider(fragments ...string) *Provider {
	return &Provider{Fragments: fragments}
}

// StreamChat implements the provider interface consumed by promptgen.
func (p *Provider) StreamChat(ctx context.Context, systemPrompt, userPrompt string) (genai.ChunkStream, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSystem, p.lastUser = systemPrompt, userPrompt
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	s := &Stream{provider: p, ctx: ctx}
	p.streams = append(p.streams, s)
	return s, nil
}

// Calls reports how many times StreamChat was invoked.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

// LastPrompts returns the prompts of the most recent StreamChat call.
func (p *Provider) LastPrompts() (system, user string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSystem, p.lastUser
}

// Streams returns every stream opened so far.
func (p *Provider) Streams() []*Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Stream(nil), p.streams...)
}

// AllClosed reports whether every opened stream has been closed.
func (p *Provider) AllClosed() bool {
	for _, s := range p.Streams() {
		if !s.Closed() {
			return false
		}
	}
	return true
}

// Stream is the genai.ChunkStream handed out by Provider.
type Stream struct {
	provider *Provider
	ctx      context.Context
	pos      int
	current  string
	err      error
	closed   atomic.Bool
}

func (s *Stream) Next() bool {
	p := s.provider
	if p.Block {
		<-s.ctx.Done()
	}
	if s.ctx.Err() != nil {
		s.err = s.ctx.Err()
		return false
	}
	if p.FailErr != nil && s.pos >= p.FailAfter {
		s.err = p.FailErr
		return false
	}
	if p.Endless {
		s.current = EndlessFragment
		s.pos++
		return true
	}
	if s.pos >= len(p.Fragments) {
		return false
	}
	s.current = p.Fragments[s.pos]
	s.pos++
	return true
}

func (s *Stream) Current() string { return s.current }
func (s *Stream) Err() error      { return s.err }

func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	return s.closed.Load()
}

// ReceiptLog collects generation receipts in memory.
type ReceiptLog struct {
	mu       sync.Mutex
	receipts []models.GenerationReceipt
}

func (r *ReceiptLog) AddReceipt(rec models.GenerationReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, rec)
	return nil
}

// Receipts returns a copy of the collected receipts.
func (r *ReceiptLog) Receipts() []models.GenerationReceipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.GenerationReceipt(nil), r.receipts...)
}

// PostJSON posts body to url and closes the response when the test ends.
func PostJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Get fetches url and closes the response when the test ends.
func Get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// DecodeJSON decodes a JSON object and fails the test on error.
func DecodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	return out
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}
