package openai

import (
	"context"
	"errors"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mtzanidakis/feescope/internal/llm"
)

type stubChat struct {
	req  goopenai.ChatCompletionRequest
	resp goopenai.ChatCompletionResponse
	err  error
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

func TestComplete(t *testing.T) {
	stub := &stubChat{
		resp: goopenai.ChatCompletionResponse{
			Model: "gpt-4o",
			Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Content: "hello"}},
			},
			Usage: goopenai.Usage{PromptTokens: 10, CompletionTokens: 5},
		},
	}
	c := NewWithChatClient(stub, 0)

	resp, err := c.Complete(context.Background(), llm.Request{
		Model:       "gpt-4o",
		Temperature: 0.1,
		System:      "you are terse",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("expected hello, got %s", resp.Content)
	}
	if resp.PromptTokens != 10 || resp.CompletionTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp)
	}

	if len(stub.req.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(stub.req.Messages))
	}
	if stub.req.Messages[0].Role != goopenai.ChatMessageRoleSystem {
		t.Errorf("expected system message first, got %s", stub.req.Messages[0].Role)
	}
	if stub.req.Model != "gpt-4o" {
		t.Errorf("expected model passed through, got %s", stub.req.Model)
	}
}

func TestCompleteErrors(t *testing.T) {
	c := NewWithChatClient(&stubChat{err: errors.New("boom")}, 0)
	if _, err := c.Complete(context.Background(), llm.Request{Model: "gpt-4o"}); err == nil {
		t.Error("expected wrapped SDK error")
	}

	c = NewWithChatClient(&stubChat{resp: goopenai.ChatCompletionResponse{}}, 0)
	if _, err := c.Complete(context.Background(), llm.Request{Model: "gpt-4o"}); err == nil {
		t.Error("expected error for empty choices")
	}
}
