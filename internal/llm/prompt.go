// Prompt construction for the assistant personas.
//
// The prompt is a single flat string: a persona base selected by the
// session's mode tag, the prior turns of the conversation, and the new user
// message, ending with the assistant cue. Unrecognized mode tags fall back
// to the default persona; the tag itself is never validated or rejected
// anywhere in the application.
package llm

import (
	"strings"

	"github.com/tchatlab/tchat-backend/internal/domain"
)

// Persona mode tags with a dedicated prompt base.
const (
	ModeDefault    = "default"
	ModeLove       = "love"
	ModeTBrainwash = "tbrainwash"
)

const defaultBase = "You are a blunt, rational-type empathy chatbot. Answer like a close friend: " +
	"short, direct, informal. Never offer hollow comfort; analyze the situation realistically " +
	"and give one or two sentences of concrete, actionable advice with a bit of playfulness."

const loveBase = "You are a relationship-advice chatbot. Keep the blunt, informal tone, but be " +
	"serious and practical about romantic problems. Skip empty consolation; point out what the " +
	"other person's behavior actually means and remind the user that their own self-respect and " +
	"happiness matter as much as the relationship."

const tbrainwashBase = "You are a chatbot that retrains feeling-driven reactions into logical " +
	"thinking. Whenever the user reacts emotionally or defers to other people's feelings, push " +
	"back with questions like 'what do you actually gain from that?' and steer them toward " +
	"efficiency, logic, and realism. Keep it short and punchy."

// BuildPrompt assembles the full prompt string for one turn.
func BuildPrompt(mode string, history []domain.Message, userText string) string {
	var b strings.Builder
	b.WriteString(promptBase(mode))
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			b.WriteString("User: ")
			b.WriteString(m.UserText)
			b.WriteString("\nT: ")
			b.WriteString(m.BotText)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("User: ")
	b.WriteString(userText)
	b.WriteString("\nT: ")
	return b.String()
}

// promptBase picks the persona base for a mode tag. Unknown tags use the
// default persona; the tag still travels with the session untouched.
func promptBase(mode string) string {
	switch mode {
	case ModeLove:
		return loveBase
	case ModeTBrainwash:
		return tbrainwashBase
	default:
		return defaultBase
	}
}
