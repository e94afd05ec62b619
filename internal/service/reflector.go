package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dcanales/billetera-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// Reflector mirrors settings mutations back to the remote store. Writes are
// coalesced per user and field: rapid successive updates of the same group
// collapse into one merge-write carrying the latest value. The local mirror
// is already updated by the time Enqueue runs, so a failed write is logged
// and dropped rather than surfaced to the caller.
type Reflector struct {
	store    domain.DocumentStore
	interval time.Duration

	mu      sync.Mutex
	pending map[string]domain.Document

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReflector creates a reflector and starts its background worker.
func NewReflector(store domain.DocumentStore, interval time.Duration) *Reflector {
	r := &Reflector{
		store:    store,
		interval: interval,
		pending:  make(map[string]domain.Document),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Enqueue records one field's new value for the user's document. The value is
// encoded immediately so the write carries the state at mutation time, not at
// flush time.
func (r *Reflector) Enqueue(uid, field string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Str("field", field).Msg("Reflector encode failed")
		return
	}

	r.mu.Lock()
	doc, ok := r.pending[uid]
	if !ok {
		doc = domain.Document{}
		r.pending[uid] = doc
	}
	doc[field] = raw
	r.mu.Unlock()
}

// Discard drops any pending writes for the user without flushing them.
func (r *Reflector) Discard(uid string) {
	r.mu.Lock()
	delete(r.pending, uid)
	r.mu.Unlock()
}

// Flush writes out everything currently pending. Normally the worker calls
// this on its interval; callers needing durability (shutdown) call it
// directly.
func (r *Reflector) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[string]domain.Document)
	r.mu.Unlock()

	for uid, doc := range batch {
		if err := r.store.WriteDocument(ctx, userDocPath(uid), doc, true); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("Reflector write failed")
		}
	}
}

// Stop terminates the worker after a final flush.
func (r *Reflector) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Reflector) run() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.Flush(context.Background())
			return
		case <-ticker.C:
			r.Flush(context.Background())
		}
	}
}
