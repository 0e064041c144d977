package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPersona = "Você se chama Gozão."

func TestGetOrCreateReferenceStability(t *testing.T) {
	store := NewMemoryStore(testPersona)
	key := Key{Channel: "geral", User: "paizao"}

	first := store.GetOrCreate(key)
	first.AppendUser("oi")

	second := store.GetOrCreate(key)
	assert.Same(t, first, second, "same key within the timeout must return the same session")
	require.Len(t, second.History, 2)
	assert.Equal(t, RoleSystem, second.History[0].Role)
	assert.Equal(t, testPersona, second.History[0].Content)
}

func TestGetOrCreateExpiryDiscardsHistory(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(testPersona, WithClock(func() time.Time { return now }))
	key := Key{Channel: "geral", User: "paizao"}

	sess := store.GetOrCreate(key)
	sess.AppendUser("oi")
	sess.AppendAssistant("e aí")

	// Just inside the window: history survives.
	now = now.Add(Timeout)
	assert.Len(t, store.GetOrCreate(key).History, 3)

	// Past the window: rebuilt from scratch.
	now = now.Add(Timeout + time.Second)
	fresh := store.GetOrCreate(key)
	require.Len(t, fresh.History, 1)
	assert.Equal(t, RoleSystem, fresh.History[0].Role)
}

func TestClearThenGetYieldsFreshSession(t *testing.T) {
	store := NewMemoryStore(testPersona)
	key := Key{Channel: "geral", User: "paizao"}

	store.GetOrCreate(key).AppendUser("lembra disso")
	assert.True(t, store.Clear(key))
	assert.False(t, store.Clear(key), "clearing an absent key is a no-op")

	fresh := store.GetOrCreate(key)
	assert.Len(t, fresh.History, 1)
}

func TestKeysAreScopedPerUserPerChannel(t *testing.T) {
	store := NewMemoryStore(testPersona)

	a := store.GetOrCreate(Key{Channel: "geral", User: "a"})
	b := store.GetOrCreate(Key{Channel: "geral", User: "b"})
	c := store.GetOrCreate(Key{Channel: "memes", User: "a"})

	a.AppendUser("só meu")
	assert.Len(t, b.History, 1)
	assert.Len(t, c.History, 1)
	assert.Equal(t, 3, store.Len())
}
