// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceSearch, "transformer survey", []byte(`{"data":[]}`))

	got, ok := s.Get(NamespaceSearch, "transformer survey")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"data":[]}`), got)
}

func TestMissOnUnknownQuery(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.Get(NamespaceSearch, "never stored")
	assert.False(t, ok)
}

func TestNamespacesAreIndependent(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceSearch, "q", []byte("search value"))

	_, ok := s.Get(NamespaceLLM, "q")
	assert.False(t, ok, "llm namespace should not see search entries")

	got, ok := s.Get(NamespaceSearch, "q")
	require.True(t, ok)
	assert.Equal(t, []byte("search value"), got)
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceLLM, "prompt", []byte("old"))
	s.Put(NamespaceLLM, "prompt", []byte("new"))

	got, ok := s.Get(NamespaceLLM, "prompt")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestExpiredEntryIsDeletedOnRead(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceSearch, "q", []byte("v"))

	// Advance the clock past max-age.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok := s.Get(NamespaceSearch, "q")
	assert.False(t, ok)

	// The entry must be gone even after the clock is restored.
	s.now = time.Now
	_, ok = s.Get(NamespaceSearch, "q")
	assert.False(t, ok, "expired entry should have been removed, not skipped")
}

func TestPurgeNamespace(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceSearch, "a", []byte("1"))
	s.Put(NamespaceLLM, "b", []byte("2"))

	require.NoError(t, s.Purge(NamespaceSearch))

	_, ok := s.Get(NamespaceSearch, "a")
	assert.False(t, ok)
	_, ok = s.Get(NamespaceLLM, "b")
	assert.True(t, ok)
}

func TestPurgeAll(t *testing.T) {
	s := openTestStore(t)

	s.Put(NamespaceSearch, "a", []byte("1"))
	s.Put(NamespaceLLM, "b", []byte("2"))

	require.NoError(t, s.Purge(""))

	_, ok := s.Get(NamespaceSearch, "a")
	assert.False(t, ok)
	_, ok = s.Get(NamespaceLLM, "b")
	assert.False(t, ok)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := openTestStore(t)

	// Stored an hour and a half in the past, so it is past the 1h max-age.
	s.now = func() time.Time { return time.Now().Add(-90 * time.Minute) }
	s.Put(NamespaceSearch, "stale", []byte("old"))

	s.now = time.Now
	s.Put(NamespaceSearch, "fresh", []byte("new"))

	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := s.Get(NamespaceSearch, "stale")
	assert.False(t, ok)
	_, ok = s.Get(NamespaceSearch, "fresh")
	assert.True(t, ok)
}

func TestNilStoreIsDisabledCache(t *testing.T) {
	var s *Store

	s.Put(NamespaceSearch, "q", []byte("v"))
	_, ok := s.Get(NamespaceSearch, "q")
	assert.False(t, ok)

	require.NoError(t, s.Purge(""))
	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, s.Close())
}

func TestKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, Key("query"), Key("query"))
	assert.NotEqual(t, Key("query"), Key("query "))
}
