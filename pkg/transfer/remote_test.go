package transfer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transmute/transmute/pkg/buildcontext"
)

func TestRemoteContextGetAndKeys(t *testing.T) {
	store := buildcontext.NewStore(map[string]any{
		"base_url": "https://example.test",
		"draft":    false,
	})

	calls := make(chan ContextCall, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ServeCalls(calls, store)
	}()

	remote := NewRemoteContext(calls)

	v, ok := remote.Get("base_url")
	assert.True(t, ok)
	assert.Equal(t, "https://example.test", v)

	_, ok = remote.Get("missing")
	assert.False(t, ok)

	keys := remote.Keys()
	assert.ElementsMatch(t, []string{"base_url", "draft"}, keys)

	close(calls)
	<-done
}

func TestRemoteContextConcurrentReadsCorrelate(t *testing.T) {
	store := buildcontext.NewStore(map[string]any{
		"a": 1, "b": 2, "c": 3, "d": 4,
	})

	calls := make(chan ContextCall, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ServeCalls(calls, store)
	}()

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c", "d"} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				remote := NewRemoteContext(calls)
				v, ok := remote.Get(key)
				if !ok {
					t.Errorf("key %s missing", key)
					return
				}
				want := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}[key]
				if v != want {
					t.Errorf("key %s: reply mismatch, got %v want %d", key, v, want)
				}
			}(key)
		}
	}
	wg.Wait()

	close(calls)
	<-done
}
