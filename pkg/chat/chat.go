// Package chat is a small chat-completions client for OpenAI-compatible
// endpoints that keeps a sliding window of conversation history.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

const maxErrorBody = 64 << 10

const (
	DefaultHistoryWindow = 5
	DefaultSystemPrompt  = "You are a helpful assistant for video game reviews. " +
		"Answer clearly and concisely, and say so when you are not sure."
)

// Options configures a Session.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	// HistoryWindow is how many past messages accompany each request.
	HistoryWindow int
	HTTPClient    *http.Client
}

// Message is one turn of the conversation.
type Message struct {
	Role    string
	Content string
}

// Session holds one conversation.
type Session struct {
	client  *openai.Client
	errBody *errorBodyRecorder
	model   string
	system  string
	window  int
	history []openai.ChatCompletionMessage
}

// NewSession builds a session against the configured endpoint.
func NewSession(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("chat api key is empty")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("chat model is empty")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	httpClient := http.Client{}
	if opts.HTTPClient != nil {
		httpClient = *opts.HTTPClient
	}
	recorder := &errorBodyRecorder{next: httpClient.Transport}
	if recorder.next == nil {
		recorder.next = http.DefaultTransport
	}
	httpClient.Transport = recorder
	cfg.HTTPClient = &httpClient
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}

	return &Session{
		client:  openai.NewClientWithConfig(cfg),
		errBody: recorder,
		model:   opts.Model,
		system:  opts.SystemPrompt,
		window:  opts.HistoryWindow,
	}, nil
}

// Send posts the system prompt, the recent history window and text, and
// returns the assistant reply. An error status from the endpoint is rendered
// as the reply ("Error <status>: <body>") and the turn is not recorded.
// Transport failures are returned as errors.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("message is empty")
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	s.errBody.take()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.request(user),
	})
	if err != nil {
		if reply, ok := statusReply(err, s.errBody.take()); ok {
			return reply, nil
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	reply := resp.Choices[0].Message.Content
	s.history = append(s.history, user, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply, nil
}

func (s *Session) request(user openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	recent := s.history
	if len(recent) > s.window {
		recent = recent[len(recent)-s.window:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(recent)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.system})
	msgs = append(msgs, recent...)
	return append(msgs, user)
}

// History returns the recorded conversation, oldest first.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	for i, m := range s.history {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// Reset forgets the conversation.
func (s *Session) Reset() { s.history = nil }

// statusReply renders an error status as "Error <status>: <body>". The raw
// response body is preferred; the decoded message is used when none was read.
func statusReply(err error, body string) (string, bool) {
	status, detail := 0, ""
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0:
		status, detail = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0:
		status, detail = reqErr.HTTPStatusCode, fmt.Sprint(reqErr.Err)
	default:
		return "", false
	}
	if body != "" {
		detail = body
	}
	return fmt.Sprintf("Error %d: %s", status, detail), true
}

// errorBodyRecorder keeps the body of the last error response and hands an
// identical copy on to the client.
type errorBodyRecorder struct {
	next http.RoundTripper
	mu   sync.Mutex
	last string
}

func (r *errorBodyRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	r.mu.Lock()
	r.last = strings.TrimSpace(string(raw))
	r.mu.Unlock()
	return resp, nil
}

// take returns and clears the recorded body.
func (r *errorBodyRecorder) take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	body := r.last
	r.last = ""
	return body
}
