package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gozaobot/gozao/internal/ratelimit"
	"github.com/gozaobot/gozao/internal/session"
)

// testGateway builds a Gateway whose network seam is the given call func.
func testGateway(models []string, call func(ctx context.Context, model string, req Request) (string, error)) *Gateway {
	return &Gateway{models: models, call: call}
}

func userPrompt(text string) Request {
	return Prompt(text, 0.7)
}

func TestFailoverStopsAtFirstSuccess(t *testing.T) {
	var tried []string
	g := testGateway([]string{"a", "b", "c", "d"}, func(_ context.Context, model string, _ Request) (string, error) {
		tried = append(tried, model)
		if model == "c" {
			return "resposta do c", nil
		}
		return "", fmt.Errorf("model %s: unavailable", model)
	})

	res := g.Complete(context.Background(), userPrompt("oi"))
	require.NoError(t, res.Err)
	assert.Equal(t, "resposta do c", res.Text)
	assert.Equal(t, "c", res.Model)
	assert.Equal(t, []string{"a", "b", "c"}, tried, "no call is made beyond the first success")
}

func TestAllModelsFailReturnsLastErrorAsValue(t *testing.T) {
	g := testGateway([]string{"a", "b"}, func(_ context.Context, model string, _ Request) (string, error) {
		return "", fmt.Errorf("model %s: quota exceeded", model)
	})

	res := g.Complete(context.Background(), userPrompt("oi"))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "model b", "the last error is the one surfaced")
	assert.Empty(t, res.Text)
}

func TestEmptyCompletionIsBlockedNotFailedOver(t *testing.T) {
	var calls int
	g := testGateway([]string{"a", "b"}, func(_ context.Context, _ string, _ Request) (string, error) {
		calls++
		return "", nil
	})

	res := g.Complete(context.Background(), userPrompt("oi"))
	assert.NoError(t, res.Err)
	assert.True(t, res.Blocked)
	assert.Equal(t, 1, calls, "a policy block must not advance the failover")
}

func TestQuotaExhaustionAdvancesFailover(t *testing.T) {
	g := testGateway([]string{"a", "b"}, func(_ context.Context, model string, _ Request) (string, error) {
		return "via " + model, nil
	})
	limiter := ratelimit.New(1, 0)
	limiter.Allow("a") // burn a's quota
	g.limiter = limiter

	res := g.Complete(context.Background(), userPrompt("oi"))
	require.NoError(t, res.Err)
	assert.Equal(t, "b", res.Model)
}

func TestLastResortRunsAfterAllModelsFail(t *testing.T) {
	g := testGateway([]string{"a"}, func(_ context.Context, _ string, _ Request) (string, error) {
		return "", errors.New("down")
	})
	g.lastResort = func(_ context.Context, _ Request) (string, error) {
		return "fallback text", nil
	}

	res := g.Complete(context.Background(), userPrompt("oi"))
	require.NoError(t, res.Err)
	assert.Equal(t, "fallback text", res.Text)
	assert.Equal(t, "openai", res.Model)
}

func TestCompleteDoesNotMutateMessages(t *testing.T) {
	g := testGateway([]string{"a"}, func(_ context.Context, _ string, req Request) (string, error) {
		return "ok", nil
	})

	msgs := []session.Message{
		{Role: session.RoleSystem, Content: "persona"},
		{Role: session.RoleUser, Content: "oi"},
	}
	g.Complete(context.Background(), Request{Messages: msgs})

	require.Len(t, msgs, 2)
	assert.Equal(t, "persona", msgs[0].Content)
	assert.Equal(t, "oi", msgs[1].Content)
}
