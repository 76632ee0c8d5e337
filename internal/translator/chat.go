package translator

import (
	"context"

	"github.com/MimeLyc/structured-doc-translator/internal/llm"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

const chatDefaultBatchSize = 100

// chatEngine sends tagged batches to an OpenAI-compatible chat endpoint.
type chatEngine struct {
	name   string
	client *llm.Client
}

func newChatEngine(name string, cfg llm.Config) (*chatEngine, error) {
	client, err := llm.NewClient(&cfg)
	if err != nil {
		return nil, err
	}
	return &chatEngine{name: name, client: client}, nil
}

func (e *chatEngine) Name() string          { return e.name }
func (e *chatEngine) Kind() Kind            { return KindChat }
func (e *chatEngine) DefaultBatchSize() int { return chatDefaultBatchSize }

func (e *chatEngine) Call(ctx context.Context, req Request) (string, error) {
	opts := llm.NewChatCompletionOptions().WithSystemPrompt(req.System)
	resp, err := e.client.ChatCompletion(ctx, []llm.Message{{Role: "user", Content: req.Text}}, opts)
	if err != nil {
		return "", err
	}
	return extractChatText(resp)
}

// extractChatText reads choices[0].message.content.
func extractChatText(resp *llm.ChatResponse) (string, error) {
	text, err := llm.FirstChoiceContent(resp)
	if err != nil {
		return "", err
	}
	if resp.Choices[0].FinishReason == "length" {
		log.Warn("Chat reply truncated by token limit, trailing blocks will be reconciled as missing")
	}
	return text, nil
}
