// Package bot dispatches platform commands to the session store, the model
// gateway and the curation pipeline, and maps every failure to an in-persona
// user-visible message.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/gozaobot/gozao/internal/llm"
	"github.com/gozaobot/gozao/internal/metrics"
	"github.com/gozaobot/gozao/internal/news"
	"github.com/gozaobot/gozao/internal/session"
)

// Persona is the fixed system instruction every session starts with.
const Persona = `Você se chama Gozão e é um assistente virtual brasileiro, gente boa e direto ao ponto.
Seu tom é informal, usando gírias leves quando apropriado (tipo "Paizão", "Chorão Skate Board", "ÉAHNNNNNN").
Você responde em Português do Brasil (PT-BR) nativo.
Seja conciso, mas prestativo.`

const (
	msgBlocked      = "⚠️ O Gozão não conseguiu gerar uma resposta de texto (bloqueio ou erro interno)."
	msgGozaoBlocked = "Paizão, é o seguinte: o modelo travou e não soltou texto."
	msgMemoryReset  = "🧠 Memória apagada! O bot esqueceu o que conversamos neste canal."
	msgEmptyPrompt  = "Opa! Fala alguma coisa aí pra eu responder."
	truncateMarker  = "... (cortado)"
)

// Sender delivers one outbound message to a channel.
type Sender interface {
	Send(ctx context.Context, channel string, text string) error
}

// Digester is the curation pipeline seam.
type Digester interface {
	Digest(ctx context.Context, topic string, maxItems int) (string, error)
}

// Broadcaster owns the scheduled-broadcast target slot.
type Broadcaster interface {
	SetTarget(channel string)
}

// Config holds the per-deployment knobs of the command layer.
type Config struct {
	Prefix       string
	Ceiling      int // platform message-length limit
	TruncateAt   int // cut point before the truncation marker
	DefaultTopic string
	NewsItems    int
	UrgentItems  int
	Memes        []string
}

type Bot struct {
	cfg       Config
	sessions  session.Store
	completer llm.Completer
	digester  Digester
	broadcast Broadcaster
	sender    Sender

	// recent non-command traffic per channel, sampled by the meme command
	historyMu sync.Mutex
	history   map[string][]string
}

const historyCap = 50

func New(cfg Config, sessions session.Store, completer llm.Completer, digester Digester, broadcast Broadcaster, sender Sender) *Bot {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.Ceiling == 0 {
		cfg.Ceiling = 2000
	}
	if cfg.TruncateAt == 0 {
		cfg.TruncateAt = 1900
	}
	return &Bot{
		cfg:       cfg,
		sessions:  sessions,
		completer: completer,
		digester:  digester,
		broadcast: broadcast,
		sender:    sender,
		history:   make(map[string][]string),
	}
}

// HandleMessage processes one inbound message. Non-command traffic is only
// recorded for meme sampling; commands are dispatched and always answered.
func (b *Bot) HandleMessage(ctx context.Context, channel, user, text string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, b.cfg.Prefix) {
		b.recordHistory(channel, text)
		return
	}

	metrics.Global.IncrementCommandsHandled()

	name, args, _ := strings.Cut(strings.TrimPrefix(text, b.cfg.Prefix), " ")
	name = strings.ToLower(strings.TrimSpace(name))
	args = strings.TrimSpace(args)
	key := session.Key{Channel: channel, User: user}

	log := slog.With("command", name, "channel", channel, "user", user)

	var reply string
	switch name {
	case "ask":
		reply = b.ask(ctx, key, args, llm.Request{})
	case "gozão", "gozao":
		// Looser generation settings, answer always prefixed.
		reply = b.gozao(ctx, key, args)
	case "reset":
		b.sessions.Clear(key)
		reply = msgMemoryReset
	case "news":
		reply = b.news(ctx, args)
	case "urgente", "urgent":
		reply = b.urgent(ctx, channel)
	case "meme":
		reply = b.meme(args)
	case "help":
		reply = b.helpText()
	default:
		log.Debug("unknown command ignored")
		return
	}

	b.reply(ctx, channel, reply)
}

// ask runs one conversational turn: append the user entry, complete with the
// full history, append the assistant entry on success. A failed turn discards
// the whole session so the next one starts clean.
func (b *Bot) ask(ctx context.Context, key session.Key, prompt string, base llm.Request) string {
	if prompt == "" {
		return msgEmptyPrompt
	}

	sess := b.sessions.GetOrCreate(key)
	sess.AppendUser(prompt)

	req := base
	req.Messages = sess.History
	res := b.completer.Complete(ctx, req)

	switch {
	case res.Err != nil:
		b.sessions.Clear(key)
		metrics.Global.IncrementSessionsDiscarded()
		metrics.Global.IncrementCompletionsExhausted()
		return fmt.Sprintf("Erro (memória reiniciada): %v", res.Err)
	case res.Blocked || res.Text == "":
		// Drop the dangling user entry so alternation survives the block.
		sess.History = sess.History[:len(sess.History)-1]
		metrics.Global.IncrementCompletionsBlocked()
		return msgBlocked
	default:
		sess.AppendAssistant(res.Text)
		metrics.Global.IncrementCompletionsOK()
		return res.Text
	}
}

func (b *Bot) gozao(ctx context.Context, key session.Key, prompt string) string {
	if prompt == "" {
		return msgEmptyPrompt
	}

	answer := b.ask(ctx, key, prompt, llm.Request{
		Temperature:   1.0,
		MaxTokens:     512,
		DisableSafety: true,
	})
	if answer == msgBlocked {
		return msgGozaoBlocked
	}
	return "Paizão, é o seguinte: " + answer
}

func (b *Bot) news(ctx context.Context, topic string) string {
	if topic == "" {
		topic = b.cfg.DefaultTopic
	}

	digest, err := b.digester.Digest(ctx, topic, b.cfg.NewsItems)
	if err != nil {
		return newsErrorMessage(topic, err)
	}
	return digest
}

// urgent runs the larger pipeline for the caller right away and claims the
// scheduled-broadcast destination for their channel (last caller wins).
func (b *Bot) urgent(ctx context.Context, channel string) string {
	if b.broadcast != nil {
		b.broadcast.SetTarget(channel)
	}

	digest, err := b.digester.Digest(ctx, "", b.cfg.UrgentItems)
	if err != nil {
		return newsErrorMessage("urgente", err)
	}
	return digest
}

func (b *Bot) meme(channel string) string {
	if channel != "" {
		if msg, ok := b.sampleHistory(channel); ok {
			return msg
		}
		return "Ainda não vi nada memorável nesse canal, paizão."
	}
	if len(b.cfg.Memes) == 0 {
		return "Tô sem memes hoje, paizão."
	}
	return b.cfg.Memes[rand.Intn(len(b.cfg.Memes))]
}

func (b *Bot) helpText() string {
	p := b.cfg.Prefix
	return strings.Join([]string{
		"Comandos do Gozão:",
		p + "ask <pergunta> — conversa com memória por canal",
		p + "gozão <pergunta> — modo paizão, sem freio",
		p + "reset — apaga a memória deste canal",
		p + "news [tópico] — resumo de notícias (padrão: " + b.cfg.DefaultTopic + ")",
		p + "urgente — notícias urgentes agora e neste canal a cada rodada",
		p + "meme [canal] — um clássico do acervo",
	}, "\n")
}

// reply truncates to the platform ceiling and sends, logging delivery failure.
func (b *Bot) reply(ctx context.Context, channel, text string) {
	if text == "" {
		return
	}
	out, truncated := Truncate(text, b.cfg.Ceiling, b.cfg.TruncateAt)
	metrics.Global.RecordMessageSent(truncated)
	if err := b.sender.Send(ctx, channel, out); err != nil {
		slog.Error("failed to deliver reply", "channel", channel, "error", err)
	}
}

// Truncate cuts text to at most truncateAt units plus an explicit marker,
// never exceeding ceiling. Units are runes, matching how the platform counts.
func Truncate(text string, ceiling, truncateAt int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= ceiling {
		return text, false
	}
	return string(runes[:truncateAt]) + truncateMarker, true
}

// TruncatingSender wraps a Sender so callers outside the command layer (the
// scheduler) respect the same platform ceiling.
type TruncatingSender struct {
	Sender     Sender
	Ceiling    int
	TruncateAt int
}

func (t TruncatingSender) Send(ctx context.Context, channel, text string) error {
	out, truncated := Truncate(text, t.Ceiling, t.TruncateAt)
	metrics.Global.RecordMessageSent(truncated)
	return t.Sender.Send(ctx, channel, out)
}

func newsErrorMessage(topic string, err error) string {
	switch {
	case errors.Is(err, news.ErrNoNews):
		return fmt.Sprintf("Não achei notícias sobre '%s'.", topic)
	case errors.Is(err, news.ErrTimeout):
		return "As fontes de notícia demoraram demais pra responder. Tenta de novo daqui a pouco."
	case errors.Is(err, news.ErrBlocked):
		return msgBlocked
	default:
		return fmt.Sprintf("Deu ruim: %v", err)
	}
}

func (b *Bot) recordHistory(channel, text string) {
	if text == "" {
		return
	}
	b.historyMu.Lock()
	defer b.historyMu.Unlock()

	ring := append(b.history[channel], text)
	if len(ring) > historyCap {
		ring = ring[len(ring)-historyCap:]
	}
	b.history[channel] = ring
}

func (b *Bot) sampleHistory(channel string) (string, bool) {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()

	ring := b.history[channel]
	if len(ring) == 0 {
		return "", false
	}
	return ring[rand.Intn(len(ring))], true
}
