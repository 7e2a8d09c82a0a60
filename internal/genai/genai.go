// Package genai provides streaming text generation using the OpenAI API.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// Default generation parameters
const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4"
	// DefaultTemperature is a moderate sampling temperature.
	DefaultTemperature = 0.7
	// DefaultMaxTokens caps the response length.
	DefaultMaxTokens = 1500
)

// Error variables for better error handling and testability
var (
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")
)

// ChunkStream yields incremental pieces of generated text.
type ChunkStream interface {
	// Next advances to the next non-empty fragment. It returns false at the end
	// of the stream or on error.
	Next() bool
	// Current returns the fragment Next advanced to.
	Current() string
	// Err returns the error that stopped the stream, if any.
	Err() error
	// Close releases the underlying connection.
	Close() error
}

// chatService defines the minimal interface for streaming chat completions.
type chatService interface {
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	MaxRetries  int
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) {
		o.Temperature = t
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) {
		o.MaxTokens = n
	}
}

// WithMaxRetries sets how often the SDK retries a failed request before the
// stream starts. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(o *Opts) {
		o.MaxRetries = n
	}
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int64
}

// NewClient creates a GenAI client. The API key comes from WithAPIKey or the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxRetries:  -1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI.NewClient: API key not set")
		return nil, ErrMissingAPIKey
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.MaxRetries))
	}
	cli := openai.NewClient(reqOpts...)

	slog.Debug("GenAI.NewClient: client created", "model", cfg.Model, "temperature", cfg.Temperature, "maxTokens", cfg.MaxTokens, "baseURL", cfg.BaseURL)
	return &Client{
		chat:        &cli.Chat.Completions,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// StreamChat starts a streaming completion for the given system and user prompts.
// An error is returned when the request fails before the response stream opens
// (network, authentication, rate limiting). The caller must Close the stream.
func (c *Client) StreamChat(ctx context.Context, systemPrompt, userPrompt string) (ChunkStream, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	slog.Debug("GenAI.StreamChat: opening stream", "model", c.model, "systemPromptLength", len(systemPrompt), "userPromptLength", len(userPrompt))
	stream := c.chat.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		slog.Error("GenAI.StreamChat: request failed", "error", err)
		stream.Close()
		return nil, err
	}
	return &chunkStream{stream: stream}, nil
}

// chunkStream adapts the SDK stream to ChunkStream, skipping chunks without text.
type chunkStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current string
}

func (s *chunkStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			s.current = content
			return true
		}
	}
	return false
}

func (s *chunkStream) Current() string {
	return s.current
}

func (s *chunkStream) Err() error {
	return s.stream.Err()
}

func (s *chunkStream) Close() error {
	return s.stream.Close()
}
