package bridge

import (
	"encoding/json"
	"sync"
	"time"
)

// response is the terminal outcome delivered to one pending request.
type response struct {
	result json.RawMessage
	err    error
}

// PendingRequest tracks one in-flight command execution from registration
// until it is resolved by a matching response, a timeout, or connection
// teardown.
type PendingRequest struct {
	ID        string
	Command   string
	CreatedAt time.Time

	done chan response
}

func newPendingRequest(id, command string) *PendingRequest {
	return &PendingRequest{
		ID:        id,
		Command:   command,
		CreatedAt: time.Now(),
		// Buffered so the resolver never blocks on a caller that has
		// already moved on.
		done: make(chan response, 1),
	}
}

// resolve delivers the terminal outcome. The caller must own the request
// exclusively, obtained through take or drain.
func (p *PendingRequest) resolve(result json.RawMessage, err error) {
	p.done <- response{result: result, err: err}
}

// pendingTable maps correlation IDs to in-flight requests. Removal transfers
// ownership: whichever goroutine takes an entry out becomes its sole
// resolver, so every request is resolved exactly once no matter how the
// response, timeout, and teardown paths race.
type pendingTable struct {
	mu   sync.RWMutex
	reqs map[string]*PendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{reqs: make(map[string]*PendingRequest)}
}

func (t *pendingTable) add(req *PendingRequest) {
	t.mu.Lock()
	t.reqs[req.ID] = req
	t.mu.Unlock()
}

// take removes and returns the request registered under id, if any.
func (t *pendingTable) take(id string) (*PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.reqs[id]
	if ok {
		delete(t.reqs, id)
	}
	return req, ok
}

// drain removes and returns every pending request.
func (t *pendingTable) drain() []*PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.reqs) == 0 {
		return nil
	}
	reqs := make([]*PendingRequest, 0, len(t.reqs))
	for _, req := range t.reqs {
		reqs = append(reqs, req)
	}
	t.reqs = make(map[string]*PendingRequest)
	return reqs
}

func (t *pendingTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.reqs)
}
