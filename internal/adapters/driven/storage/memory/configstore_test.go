package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore(nil)
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore(map[string]any{"key1": "original"})

	require.NoError(t, store.Set("key1", "updated"))

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"str":      "hello",
		"int":      int64(42),
		"int_str":  "7",
		"float":    2.5,
		"bool":     true,
		"bool_str": "true",
		"dur":      "90s",
		"dur_int":  int64(10),
	})

	assert.Equal(t, "hello", store.GetString("str"))
	assert.Equal(t, "", store.GetString("int"))
	assert.Equal(t, 42, store.GetInt("int"))
	assert.Equal(t, 7, store.GetInt("int_str"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Equal(t, 2.5, store.GetFloat("float"))
	assert.Equal(t, 42.0, store.GetFloat("int"))
	assert.True(t, store.GetBool("bool"))
	assert.True(t, store.GetBool("bool_str"))
	assert.False(t, store.GetBool("missing"))
	assert.Equal(t, 90*time.Second, store.GetDuration("dur"))
	assert.Equal(t, 10*time.Second, store.GetDuration("dur_int"))
	assert.Zero(t, store.GetDuration("str"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("key")
		}()
	}
	wg.Wait()

	_, ok := store.Get("key")
	assert.True(t, ok)
}
