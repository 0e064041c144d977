package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gozaobot/gozao/internal/ratelimit"
	"github.com/gozaobot/gozao/internal/session"
)

// Gateway tries each configured Gemini model in order and returns the first
// success. The caller-supplied message sequence is read, never written.
type Gateway struct {
	client  *genai.Client
	models  []string
	limiter *ratelimit.Limiter

	// call is the per-model network seam; tests replace it.
	call func(ctx context.Context, model string, req Request) (string, error)
	// lastResort runs after every Gemini model has failed, nil when disabled.
	lastResort func(ctx context.Context, req Request) (string, error)
}

// GatewayOption tweaks a Gateway at construction time.
type GatewayOption func(*Gateway)

// WithQuota caps completion calls per model per day. Exhausted quota counts
// as a model failure and advances the failover.
func WithQuota(limiter *ratelimit.Limiter) GatewayOption {
	return func(g *Gateway) { g.limiter = limiter }
}

// WithOpenAIFallback enables a cross-provider last resort after every Gemini
// model has failed.
func WithOpenAIFallback(apiKey string) GatewayOption {
	return func(g *Gateway) { g.lastResort = newOpenAIFallback(apiKey) }
}

func NewGateway(ctx context.Context, apiKey string, models []string, opts ...GatewayOption) (*Gateway, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &Gateway{client: client, models: models}
	g.call = g.generate
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gateway) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Complete attempts each model in order; network errors, quota exhaustion and
// provider rejections all advance to the next candidate. If every model fails
// the Result carries the last error as a value.
func (g *Gateway) Complete(ctx context.Context, req Request) Result {
	lastErr := errors.New("no models configured")

	for _, model := range g.models {
		if g.limiter != nil && !g.limiter.Allow(model) {
			lastErr = fmt.Errorf("model %s: daily quota exhausted", model)
			slog.Warn("completion skipped", "model", model, "reason", "quota")
			continue
		}

		text, err := g.call(ctx, model, req)
		if err != nil {
			lastErr = err
			slog.Warn("completion failed, trying next model", "model", model, "error", err)
			continue
		}
		if text == "" {
			// The provider answered but produced no text (policy block or
			// empty candidate). Distinct outcome, not a failover trigger.
			slog.Info("completion blocked", "model", model)
			return Result{Model: model, Blocked: true}
		}
		return Result{Text: Sanitize(text), Model: model}
	}

	if g.lastResort != nil {
		text, err := g.lastResort(ctx, req)
		if err == nil && text != "" {
			slog.Info("completion served by last-resort provider")
			return Result{Text: Sanitize(text), Model: "openai"}
		}
		if err != nil {
			lastErr = err
		}
	}

	return Result{Err: lastErr}
}

// generate runs one Gemini call. The history invariant (single leading system
// entry, user/assistant alternation, user last) is owned by the session store.
func (g *Gateway) generate(ctx context.Context, name string, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", errors.New("empty message sequence")
	}

	model := g.client.GenerativeModel(name)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.DisableSafety {
		model.SafetySettings = blockNone()
	}

	msgs := req.Messages
	if msgs[0].Role == session.RoleSystem {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(msgs[0].Content)},
		}
		msgs = msgs[1:]
	}
	if len(msgs) == 0 {
		return "", errors.New("no user message to send")
	}

	last := msgs[len(msgs)-1]
	chat := model.StartChat()
	chat.History = toHistory(msgs[:len(msgs)-1])

	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("model %s: %w", name, err)
	}

	return extractText(resp), nil
}

func toHistory(msgs []session.Message) []*genai.Content {
	history := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == session.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func blockNone() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockNone})
	}
	return settings
}
