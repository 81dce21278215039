// OpenAI-compatible chat-completion client implementing Responder.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// Config carries the connection settings for the chat-completion API. Any
// OpenAI-compatible endpoint works; BaseURL defaults to the public API when
// left empty.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is a Responder backed by an OpenAI-compatible chat-completion
// endpoint. It is safe for concurrent use.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a Client from cfg, applying defaults for the model and
// per-call timeout.
func NewClient(cfg Config) *Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(cc),
		model:   model,
		timeout: timeout,
	}
}

// Reply sends the assembled prompt as one user message and returns the
// model's text. Every failure path (transport error, empty choice list,
// context timeout) returns Apology; this method never fails upward.
func (c *Client) Reply(ctx context.Context, mode string, history []domain.Message, userText string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(mode, history, userText),
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("mode", mode).Msg("chat completion failed")
		return Apology
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("mode", mode).Msg("chat completion returned no choices")
		return Apology
	}
	return resp.Choices[0].Message.Content
}
