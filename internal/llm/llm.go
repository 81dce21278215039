// Package llm is the boundary to the external language model. The rest of
// the application only sees the Responder contract: a prompt goes in, a
// reply string comes out, and any failure inside the collaborator degrades
// to a fixed apology string instead of an error. Nothing in the core ever
// handles an LLM failure.
package llm

import (
	"context"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// Apology is the fixed fallback reply returned whenever the model cannot
// produce a response. Callers may rely on receiving exactly this string.
const Apology = "Sorry, I couldn't come up with a reply just now. Please try again in a moment."

// Responder produces the assistant's reply for one turn. mode selects the
// persona, history carries the session's prior turns in creation order, and
// userText is the new user message. Implementations never return an error;
// they return Apology instead.
type Responder interface {
	Reply(ctx context.Context, mode string, history []domain.Message, userText string) string
}

// ResponderFunc adapts a plain function to the Responder interface.
type ResponderFunc func(ctx context.Context, mode string, history []domain.Message, userText string) string

// Reply implements Responder.
func (f ResponderFunc) Reply(ctx context.Context, mode string, history []domain.Message, userText string) string {
	return f(ctx, mode, history, userText)
}
