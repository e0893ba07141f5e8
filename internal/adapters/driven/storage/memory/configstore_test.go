package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"server.url": "http://x"}
	store := NewConfigStore(seed)
	seed["server.url"] = "changed"

	assert.Equal(t, "http://x", store.GetString("server.url"))
}

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore(nil)
	require.NoError(t, store.Set("retention.days", 14))

	val, ok := store.Get("retention.days")
	assert.True(t, ok)
	assert.Equal(t, 14, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":      "text",
		"i":      int64(7),
		"f":      2.5,
		"b":      true,
		"list":   []any{"a", 1, "b"},
		"strs":   []string{"x"},
		"wrong":  42,
		"nobool": "true",
	})

	assert.Equal(t, "text", store.GetString("s"))
	assert.Empty(t, store.GetString("wrong"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 2, store.GetInt("f"))
	assert.InDelta(t, 2.5, store.GetFloat("f"), 0.0001)
	assert.InDelta(t, 42.0, store.GetFloat("wrong"), 0.0001)
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("nobool"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Equal(t, []string{"x"}, store.GetStringSlice("strs"))
	assert.Nil(t, store.GetStringSlice("s"))
}

func TestConfigStore_NoopPersistence(t *testing.T) {
	store := NewConfigStore(nil)
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}
