package reasoning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/sashabaranov/go-openai"
	"github.com/spboyer/syndi/internal/dialogue"
)

const judgeMaxTokens = 300

// OpenAI streams turns and judge answers from the OpenAI chat API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates an OpenAI engine. An empty baseURL uses the public API.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Respond implements dialogue.Responder.
func (o *OpenAI) Respond(ctx context.Context, req dialogue.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:     req.Model,
			MaxTokens: req.MaxTokens,
			Messages:  toOpenAIMessages(req.Messages),
			Stream:    true,
		})
		if err != nil {
			yield("", fmt.Errorf("starting completion stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("reading completion stream: %w", err))
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// CompleteJSON implements Completer using JSON response mode.
func (o *OpenAI) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: judgeMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Shutdown implements Engine.
func (o *OpenAI) Shutdown(context.Context) error {
	return nil
}

func toOpenAIMessages(msgs []dialogue.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
