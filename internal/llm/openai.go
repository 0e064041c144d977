package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/gozaobot/gozao/internal/session"
)

// newOpenAIFallback builds the cross-provider last resort. It is only
// consulted after every Gemini model has failed, so quality beats cost here.
func newOpenAIFallback(apiKey string) func(ctx context.Context, req Request) (string, error) {
	client := openai.NewClient(apiKey)

	return func(ctx context.Context, req Request) (string, error) {
		messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    toOpenAIRole(m.Role),
				Content: m.Content,
			})
		}

		chatReq := openai.ChatCompletionRequest{
			Model:       openai.GPT4oMini,
			Messages:    messages,
			Temperature: req.Temperature,
		}
		if req.MaxTokens > 0 {
			chatReq.MaxCompletionTokens = int(req.MaxTokens)
		}

		resp, err := client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response from OpenAI")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
}

func toOpenAIRole(role string) string {
	switch role {
	case session.RoleSystem:
		return openai.ChatMessageRoleSystem
	case session.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
