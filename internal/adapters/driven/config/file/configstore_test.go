package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docchat", "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	require.NoError(t, store.Set("server.url", "http://x"))
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[server\nurl = "), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
url = "https://index.example.com"
timeout = 90
rate_limit = 2.5

[storage]
backend = "redis"

[kafka]
brokers = ["k1:9092", "k2:9092"]

[scheduler]
enabled = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://index.example.com", store.GetString("server.url"))
	assert.Equal(t, 90, store.GetInt("server.timeout"))
	assert.InDelta(t, 2.5, store.GetFloat("server.rate_limit"), 1e-9)
	assert.InDelta(t, 90.0, store.GetFloat("server.timeout"), 1e-9)
	assert.Equal(t, "redis", store.GetString("storage.backend"))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, store.GetStringSlice("kafka.brokers"))
	assert.False(t, store.GetBool("scheduler.enabled"))
	_, ok := store.Get("scheduler.enabled")
	assert.True(t, ok)
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("server.url", 42))
	require.NoError(t, store.Set("server.timeout", "soon"))

	assert.Empty(t, store.GetString("server.url"))
	assert.Zero(t, store.GetInt("server.timeout"))
	assert.Zero(t, store.GetFloat("server.timeout"))
	assert.False(t, store.GetBool("server.url"))
	assert.Nil(t, store.GetStringSlice("server.url"))
}

func TestConfigStore_MissingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("nope"))
	assert.Zero(t, store.GetInt("nope"))
	assert.Zero(t, store.GetFloat("nope"))
	assert.False(t, store.GetBool("nope"))
	assert.Nil(t, store.GetStringSlice("nope"))
}

func TestConfigStore_GetStringSlice_CommaSeparated(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("kafka.brokers", "a:9092, b:9092,,"))

	assert.Equal(t, []string{"a:9092", "b:9092"}, store.GetStringSlice("kafka.brokers"))
}

func TestConfigStore_SaveWritesNestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("server.url", "http://localhost:9000"))
	require.NoError(t, store.Set("retention.days", 14))
	require.NoError(t, store.Set("log.format", "json"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[server]")
	assert.Contains(t, string(raw), "[retention]")
	assert.NotContains(t, string(raw), `"server.url"`)

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", reloaded.GetString("server.url"))
	assert.Equal(t, 14, reloaded.GetInt("retention.days"))
	assert.Equal(t, "json", reloaded.GetString("log.format"))
}

func TestConfigStore_Set_EmptyKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("", "x"))
}

func TestConfigStore_Set_ConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("server", "flat"))

	assert.Error(t, store.Set("server.url", "http://x"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("server.token", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_PicksUpExternalEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("[storage]\nbackend = \"memory\"\n"), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, "memory", store.GetString("storage.backend"))
}

func TestConfigStore_Load_ReadFileError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config.toml"), 0700))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set("redis.db", i)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("redis.db")
		}()
	}
	wg.Wait()

	_, ok := store.Get("redis.db")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested, err := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)

	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(nested, ""))
}

func TestNestMap_Conflict(t *testing.T) {
	_, err := nestMap(map[string]any{"a": 1, "a.b": 2})
	assert.Error(t, err)
}
