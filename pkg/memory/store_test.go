package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileStoreInDir(dir, "memories.txt", "channel_memories.json"), dir
}

func TestFileStore_Global(t *testing.T) {
	store, dir := newTestFileStore(t)

	// Missing file reads as empty
	assert.Empty(t, store.GlobalMemories())

	require.NoError(t, store.AppendGlobal("the sky is green"))
	require.NoError(t, store.AppendGlobal("  cats can fly \n"))

	assert.Equal(t, []string{"the sky is green", "cats can fly"}, store.GlobalMemories())

	raw, err := os.ReadFile(filepath.Join(dir, "memories.txt"))
	require.NoError(t, err)
	assert.Equal(t, "the sky is green\ncats can fly\n", string(raw))
}

func TestFileStore_GlobalSkipsBlankLines(t *testing.T) {
	store, dir := newTestFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memories.txt"), []byte("a\n\n\r\nb\r\n"), 0o644))

	assert.Equal(t, []string{"a", "b"}, store.GlobalMemories())
}

func TestFileStore_GlobalNoDedup(t *testing.T) {
	store, _ := newTestFileStore(t)
	require.NoError(t, store.AppendGlobal("same"))
	require.NoError(t, store.AppendGlobal("same"))

	assert.Equal(t, []string{"same", "same"}, store.GlobalMemories())
}

func TestFileStore_GlobalWriteError(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing", "memories.txt"), "unused.json")

	err := store.AppendGlobal("x")
	assert.Error(t, err)
	assert.Empty(t, store.GlobalMemories())
}

func TestFileStore_Channel(t *testing.T) {
	store, dir := newTestFileStore(t)

	assert.Empty(t, store.ChannelMemories("c1"))

	require.NoError(t, store.AppendChannel("c1", "first"))
	require.NoError(t, store.AppendChannel("c1", "second"))
	require.NoError(t, store.AppendChannel("c2", "other"))

	assert.Equal(t, []string{"first", "second"}, store.ChannelMemories("c1"))
	assert.Equal(t, []string{"other"}, store.ChannelMemories("c2"))
	assert.Empty(t, store.ChannelMemories("c3"))

	raw, err := os.ReadFile(filepath.Join(dir, "channel_memories.json"))
	require.NoError(t, err)

	var onDisk map[string][]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, map[string][]string{
		"c1": {"first", "second"},
		"c2": {"other"},
	}, onDisk)
	assert.Contains(t, string(raw), "\n  \"c1\"")
}

func TestFileStore_ChannelCorruptFile(t *testing.T) {
	store, dir := newTestFileStore(t)
	path := filepath.Join(dir, "channel_memories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Empty(t, store.ChannelMemories("c1"))

	// A write over a corrupt file starts from an empty map
	require.NoError(t, store.AppendChannel("c1", "fresh"))
	assert.Equal(t, []string{"fresh"}, store.ChannelMemories("c1"))
}

func TestFileStore_ChannelWriteError(t *testing.T) {
	store := NewFileStore("unused.txt", filepath.Join(t.TempDir(), "missing", "channel.json"))

	assert.Error(t, store.AppendChannel("c1", "x"))
	assert.Empty(t, store.ChannelMemories("c1"))
}

func TestFileStore_ConcurrentChannelAppends(t *testing.T) {
	store, _ := newTestFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendChannel("c1", "m"))
		}()
	}
	wg.Wait()

	assert.Len(t, store.ChannelMemories("c1"), 20)
}
