package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySnapshotFollowsJoinOrder(t *testing.T) {
	r := NewRegistry()

	r.Register("c1", "Alice")
	assert.Equal(t, []string{"Alice"}, r.Snapshot())

	r.Register("c2", "Bob")
	assert.Equal(t, []string{"Alice", "Bob"}, r.Snapshot())

	r.Register("c3", "Carol")
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, r.Snapshot())
}

func TestRegistryRenameKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")
	r.Register("c2", "Bob")

	r.Register("c1", "Alicia")

	assert.Equal(t, []string{"Alicia", "Bob"}, r.Snapshot())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryUnregisterReturnsName(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")

	name, ok := r.Unregister("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
	assert.Empty(t, r.Snapshot())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")

	_, ok := r.Unregister("c1")
	require.True(t, ok)

	name, ok := r.Unregister("c1")
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestRegistryUnregisterUnknownID(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Unregister("ghost")
	assert.False(t, ok)
}

func TestRegistryDuplicateNamesKeyedByID(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")
	r.Register("c2", "Alice")

	assert.Equal(t, []string{"Alice", "Alice"}, r.Snapshot())

	name, ok := r.Unregister("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, []string{"Alice"}, r.Snapshot())
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "Alice")

	users := r.Snapshot()
	users[0] = "Mallory"

	assert.Equal(t, []string{"Alice"}, r.Snapshot())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			r.Register(id, "user")
			r.Unregister(id)
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, r.Len())
}
