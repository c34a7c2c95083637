// Package llm defines the completion client the agents talk through.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model       string
	Temperature float32
	System      string
	Messages    []Message
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client produces a completion for a request. Implementations are safe for
// concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
