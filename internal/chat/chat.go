// Package chat implements the conversation pipeline: it resolves the
// caller's location into a system prompt, augments it with retrieved
// reference excerpts, streams the model's reply to the caller chunk by
// chunk, and queues the exchange for background audit logging.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/wwmc-ai/wwmc-go/internal/budget"
	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/geo"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
	"github.com/wwmc-ai/wwmc-go/internal/prompt"
	"github.com/wwmc-ai/wwmc-go/internal/rag"
)

// DefaultTimeout bounds a single model exchange, including connection setup
// and the full streamed response.
const DefaultTimeout = 120 * time.Second

// ErrInvalidRequest marks a request rejected for malformed client input
// before any upstream call. Callers match it with errors.Is to answer with
// a client-error status instead of a server error.
var ErrInvalidRequest = errors.New("invalid chat request")

// Request is one inbound chat turn: the full conversation history as the
// client holds it, plus the location context resolved for the request.
type Request struct {
	// Messages is the conversation so far, oldest first. The last entry must
	// be the user's current message.
	Messages []docstore.ChatMessage
	// Location is the geo context resolved from request headers.
	Location geo.Context
	// Debug suppresses conversation logging and substitutes a fixed location
	// when none could be resolved, for local testing without real geo headers.
	Debug bool
}

// LogEnqueuer accepts exchange records for background persistence.
type LogEnqueuer interface {
	Enqueue(rec docstore.LogRecord)
}

// Config holds the dependencies and tuning for a chat Service.
type Config struct {
	// ChatModel produces the streamed replies. Required.
	ChatModel model.BaseChatModel

	// Retriever supplies reference excerpts for prompt augmentation. When nil,
	// augmentation is disabled and prompts carry location context only.
	Retriever rag.Retriever

	// Log receives one record per non-debug exchange, successful or not.
	// When nil, exchanges are not persisted.
	Log LogEnqueuer

	// Timeout bounds a single model exchange. Defaults to DefaultTimeout.
	Timeout time.Duration

	// TopK is the number of excerpts requested per query. Zero selects the
	// retriever's default.
	TopK int

	// MaxContextTokens is the input budget for history trimming.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Service runs chat exchanges against the configured model.
type Service struct {
	chatModel        model.BaseChatModel
	retriever        rag.Retriever
	logQueue         LogEnqueuer
	timeout          time.Duration
	topK             int
	maxContextTokens int
}

// New constructs a Service from the provided Config.
func New(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat: ChatModel must not be nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &Service{
		chatModel:        cfg.ChatModel,
		retriever:        cfg.Retriever,
		logQueue:         cfg.Log,
		timeout:          timeout,
		topK:             cfg.TopK,
		maxContextTokens: maxCtx,
	}, nil
}

// Augmented reports whether retrieval augmentation is wired in. The server
// logs this at startup so a disabled retriever is visible rather than silent.
func (s *Service) Augmented() bool {
	return s.retriever != nil
}

// Respond runs one chat exchange, writing the model's reply to w as it
// streams in. Writes happen per upstream chunk, so a caller that wraps w with
// a flusher delivers incremental output.
//
// If an error occurs before anything is written, Respond returns it with w
// untouched; callers can still send a clean error response. An error after
// the first chunk is returned as-is — the response is already underway and
// the caller can only stop.
func (s *Service) Respond(ctx context.Context, req *Request, w io.Writer) error {
	log := logging.FromContext(ctx)

	userMessage, err := validate(req)
	if err != nil {
		return err
	}

	loc := req.Location
	if req.Debug && !loc.Resolved() {
		loc = geo.DebugFallback()
		log.Debug("substituting fixed debug location")
	}

	// Every non-debug request that reaches the pipeline leaves exactly one
	// audit record, whether or not the upstream call succeeds. The deferred
	// enqueue captures whatever reply accumulated — empty when the stream
	// never started, partial when it broke mid-way.
	var reply strings.Builder
	if !req.Debug && s.logQueue != nil {
		defer func() {
			s.logQueue.Enqueue(docstore.LogRecord{
				Messages: req.Messages,
				Response: reply.String(),
				Location: loc,
			})
		}()
	}

	messages := s.buildMessages(ctx, req.Messages, userMessage, loc)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sr, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return fmt.Errorf("chat: stream failed: %w", err)
	}
	defer sr.Close()

	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("chat: stream receive: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return fmt.Errorf("chat: write: %w", err)
		}
		reply.WriteString(msg.Content)
	}

	return nil
}

// validate checks the request shape and returns the current user message.
// Every failure wraps ErrInvalidRequest: these are client faults, not ours.
func validate(req *Request) (string, error) {
	if req == nil || len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: messages must not be empty", ErrInvalidRequest)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("%w: last message must be from the user, got role %q", ErrInvalidRequest, last.Role)
	}
	if strings.TrimSpace(last.Content) == "" {
		return "", fmt.Errorf("%w: last message must not be blank", ErrInvalidRequest)
	}
	return last.Content, nil
}

// buildMessages assembles the model input: location-aware system prompt with
// retrieved excerpts, budget-trimmed history, then the current user message.
func (s *Service) buildMessages(ctx context.Context, history []docstore.ChatMessage, userMessage string, loc geo.Context) []*schema.Message {
	log := logging.FromContext(ctx)

	system := prompt.System(loc)

	if s.retriever != nil {
		docs, err := s.retriever.Retrieve(ctx, userMessage, s.topK)
		switch {
		case err != nil:
			// Availability over augmentation: answer from the base prompt
			// rather than failing the whole request.
			log.Warn("retrieval failed, responding without excerpts", slog.Any("error", err))
		case len(docs) > 0:
			system = prompt.WithFragments(system, docs)
			log.Debug("prompt augmented", slog.Int("excerpts", len(docs)))
		}
	}

	var prior []*schema.Message
	for _, m := range history[:len(history)-1] {
		switch m.Role {
		case "user":
			prior = append(prior, schema.UserMessage(m.Content))
		case "assistant":
			prior = append(prior, schema.AssistantMessage(m.Content, nil))
		default:
			// Unknown roles from older clients are dropped rather than guessed at.
			log.Debug("dropping message with unknown role", slog.String("role", m.Role))
		}
	}

	fixed := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(userMessage),
	}
	prior = budget.TrimHistory(fixed, prior, s.maxContextTokens)

	messages := make([]*schema.Message, 0, len(prior)+2)
	messages = append(messages, schema.SystemMessage(system))
	messages = append(messages, prior...)
	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}
