package counter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	key := Key{Host: "filer1", Object: "volume", Instance: "vol0"}
	snap := NewSnapshot(1234.5, map[string]any{
		"read_ops":  1000.0,
		"write_ops": 250.5,
		"version":   "9.14.1",
	})

	require.NoError(t, store.Save(key, snap))

	loaded, err := store.Load(key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Timestamp, loaded.Timestamp)

	for _, name := range []string{"read_ops", "write_ops"} {
		want, _ := snap.Float(name)
		got, ok := loaded.Float(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestStoreLoadMissingIsNil(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	snap, err := store.Load(Key{Host: "filer1", Object: "system"})
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStoreKeyIsolation(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a := Key{Host: "filer1", Object: "volume", Instance: "vol0"}
	b := Key{Host: "filer1", Object: "volume", Instance: "vol1"}
	c := Key{Host: "filer2", Object: "volume", Instance: "vol0"}

	require.NoError(t, store.Save(a, NewSnapshot(1, map[string]any{"ops": 1.0})))
	require.NoError(t, store.Save(b, NewSnapshot(2, map[string]any{"ops": 2.0})))
	require.NoError(t, store.Save(c, NewSnapshot(3, map[string]any{"ops": 3.0})))

	for ts, key := range map[float64]Key{1: a, 2: b, 3: c} {
		snap, err := store.Load(key)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, ts, snap.Timestamp)
	}
}

func TestStoreKeyEncodingCollisionFree(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	// Instances differing only in escaped runes, and keys whose component
	// boundaries could blur into each other, must stay distinct files.
	keys := []Key{
		{Host: "filer1", Object: "volume", Instance: "vol a"},
		{Host: "filer1", Object: "volume", Instance: "vol:a"},
		{Host: "filer1", Object: "volume", Instance: "vol_a"},
		{Host: "filer1_volume", Object: "x", Instance: "y"},
		{Host: "filer1", Object: "volume_x", Instance: "y"},
	}

	for i, key := range keys {
		require.NoError(t, store.Save(key, NewSnapshot(100, map[string]any{
			"read_ops": float64(i),
		})))
	}

	for i, key := range keys {
		loaded, err := store.Load(key)
		require.NoError(t, err)
		require.NotNil(t, loaded, "key %+v", key)
		got, ok := loaded.Float("read_ops")
		require.True(t, ok)
		assert.Equal(t, float64(i), got, "key %+v", key)
	}
}

func TestStoreOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	key := Key{Host: "filer1", Object: "system"}
	require.NoError(t, store.Save(key, NewSnapshot(100, map[string]any{"total_ops": 1.0})))
	require.NoError(t, store.Save(key, NewSnapshot(200, map[string]any{"total_ops": 2.0})))

	snap, err := store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, 200.0, snap.Timestamp)
	v, _ := snap.Float("total_ops")
	assert.Equal(t, 2.0, v)
}

func TestStoreCorruptFileRebootstraps(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	key := Key{Host: "filer1", Object: "system"}
	require.NoError(t, store.Save(key, NewSnapshot(100, map[string]any{"total_ops": 1.0})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{trunc"), 0o644))

	snap, err := store.Load(key)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotPersistedFlat(t *testing.T) {
	snap := NewSnapshot(42.5, map[string]any{"total_ops": 7.0})

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, 42.5, flat["timestamp"])
	assert.Equal(t, 7.0, flat["total_ops"])
}

func TestSnapshotFloatConversions(t *testing.T) {
	snap := NewSnapshot(1, map[string]any{
		"f":    1.5,
		"s":    "2.5",
		"text": "not a number",
	})

	v, ok := snap.Float("f")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = snap.Float("s")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = snap.Float("text")
	assert.False(t, ok)

	_, ok = snap.Float("absent")
	assert.False(t, ok)
}
