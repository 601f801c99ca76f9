package service

import (
	"sync"

	"github.com/google/uuid"
)

// cancelRegistry tracks which documents have an active pipeline run and which
// runs have a pending cancellation request. Cancellation is cooperative: the
// pipeline polls at page boundaries, never mid-call.
type cancelRegistry struct {
	mu        sync.Mutex
	active    map[uuid.UUID]bool
	cancelled map[uuid.UUID]bool
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{
		active:    make(map[uuid.UUID]bool),
		cancelled: make(map[uuid.UUID]bool),
	}
}

// acquire marks a document's run as active. It returns false when another run
// already owns the document, which keeps concurrent reprocess requests from
// interleaving writes to the same page set.
func (r *cancelRegistry) acquire(docID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[docID] {
		return false
	}
	r.active[docID] = true
	delete(r.cancelled, docID)
	return true
}

// release clears the active mark and any unconsumed cancellation flag.
func (r *cancelRegistry) release(docID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, docID)
	delete(r.cancelled, docID)
}

// requestCancel flags an active run for cancellation. It returns false when
// no run owns the document.
func (r *cancelRegistry) requestCancel(docID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active[docID] {
		return false
	}
	r.cancelled[docID] = true
	return true
}

func (r *cancelRegistry) isCancelled(docID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled[docID]
}
