package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubDigester struct {
	digest string
	err    error
	calls  int
}

func (d *stubDigester) Digest(_ context.Context, _ string, _ int) (string, error) {
	d.calls++
	return d.digest, d.err
}

type stubSender struct {
	channels []string
	texts    []string
	err      error
}

func (s *stubSender) Send(_ context.Context, channel, text string) error {
	s.channels = append(s.channels, channel)
	s.texts = append(s.texts, text)
	return s.err
}

func TestTickWithoutTargetIsNoOp(t *testing.T) {
	digester := &stubDigester{digest: "digesto"}
	sender := &stubSender{}
	s := New(digester, sender, time.Hour, 10)

	s.Tick(context.Background())

	assert.Zero(t, digester.calls, "no pipeline run when the target is unset")
	assert.Empty(t, sender.channels)
}

func TestTickDeliversToTarget(t *testing.T) {
	digester := &stubDigester{digest: "digesto das horas"}
	sender := &stubSender{}
	s := New(digester, sender, time.Hour, 10)

	s.SetTarget("sala-noticias")
	s.Tick(context.Background())

	assert.Equal(t, []string{"sala-noticias"}, sender.channels)
	assert.Equal(t, []string{"digesto das horas"}, sender.texts)
}

func TestTargetLastWriteWins(t *testing.T) {
	s := New(&stubDigester{}, &stubSender{}, time.Hour, 10)

	s.SetTarget("primeiro")
	s.SetTarget("segundo")
	assert.Equal(t, "segundo", s.Target())
}

func TestTickSwallowsDigestFailure(t *testing.T) {
	digester := &stubDigester{err: errors.New("fontes fora do ar")}
	sender := &stubSender{}
	s := New(digester, sender, time.Hour, 10)

	s.SetTarget("sala")
	s.Tick(context.Background())

	assert.Empty(t, sender.channels, "a failed scheduled run sends nothing")
}
