package agents

import (
	"time"

	"github.com/mtzanidakis/feescope/internal/llm"
	"github.com/mtzanidakis/feescope/internal/state"
)

// note records one agent message in the run transcript.
func note(agent, content string) state.Message {
	return state.Message{
		Agent:   agent,
		Role:    llm.RoleAssistant,
		Content: content,
		At:      time.Now().UTC(),
	}
}
