package bridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTable(t *testing.T) {
	t.Run("should hand an entry to exactly one taker", func(t *testing.T) {
		table := newPendingTable()
		req := newPendingRequest("req-1", "ping")
		table.add(req)

		got, ok := table.take("req-1")
		require.True(t, ok)
		assert.Same(t, req, got)

		_, ok = table.take("req-1")
		assert.False(t, ok, "second take must lose")
		assert.Equal(t, 0, table.count())
	})

	t.Run("should miss unknown correlation IDs", func(t *testing.T) {
		table := newPendingTable()

		_, ok := table.take("never-registered")
		assert.False(t, ok)
	})

	t.Run("should drain every entry at once", func(t *testing.T) {
		table := newPendingTable()
		for _, id := range []string{"a", "b", "c"} {
			table.add(newPendingRequest(id, "wait"))
		}

		drained := table.drain()
		assert.Len(t, drained, 3)
		assert.Equal(t, 0, table.count())
		assert.Nil(t, table.drain(), "second drain finds nothing")
	})

	t.Run("should keep takers and drainers from double resolving under contention", func(t *testing.T) {
		table := newPendingTable()
		const n = 32
		for i := 0; i < n; i++ {
			req := newPendingRequest(string(rune('a'+i)), "wait")
			table.add(req)
		}

		var wg sync.WaitGroup
		var resolved sync.Map
		resolve := func(req *PendingRequest) {
			req.resolve(nil, errors.New("done"))
			if _, loaded := resolved.LoadOrStore(req.ID, true); loaded {
				t.Error("request resolved twice:", req.ID)
			}
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				if req, ok := table.take(string(rune('a' + i))); ok {
					resolve(req)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for _, req := range table.drain() {
				resolve(req)
			}
		}()
		wg.Wait()

		assert.Equal(t, 0, table.count())
	})
}

func TestPendingRequest(t *testing.T) {
	t.Run("should deliver the outcome without blocking the resolver", func(t *testing.T) {
		req := newPendingRequest("req-1", "ping")

		req.resolve(json.RawMessage(`"pong"`), nil)

		res := <-req.done
		assert.Equal(t, `"pong"`, string(res.result))
		assert.NoError(t, res.err)
	})
}
