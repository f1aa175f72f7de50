package progress

import (
	"sync"

	"github.com/orderstack/orderstack/dto"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/interfaces"
)

const subscriberBuffer = 32

// Registry maps a job owner to at most one open event stream. It is
// created at service start and injected wherever progress is reported;
// publishing to an owner with no subscriber drops the event.
type Registry struct {
	log         logger.Logger
	mu          sync.Mutex
	subscribers map[string]chan dto.JobProgress
}

func NewRegistry(log logger.Logger) interfaces.ProgressRegistry {
	return &Registry{
		log:         log,
		subscribers: make(map[string]chan dto.JobProgress),
	}
}

// Subscribe opens a stream for the owner, replacing any prior one. The
// returned cancel function tears the entry down; it is safe to call
// after a replacement has already evicted the stream.
func (r *Registry) Subscribe(ownerID string) (<-chan dto.JobProgress, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.subscribers[ownerID]; ok {
		delete(r.subscribers, ownerID)
		close(prior)
	}

	ch := make(chan dto.JobProgress, subscriberBuffer)
	r.subscribers[ownerID] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.subscribers[ownerID]; ok && current == ch {
			delete(r.subscribers, ownerID)
			close(current)
		}
	}

	return ch, cancel
}

// Publish delivers one event to the owner's stream, if any. Events are
// never queued for absent subscribers, and a slow subscriber loses
// events rather than blocking the pipeline.
func (r *Registry) Publish(ownerID string, event dto.JobProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.subscribers[ownerID]
	if !ok {
		return
	}

	select {
	case ch <- event:
	default:
		r.log.Warnf("Progress subscriber %s is not keeping up, dropping event", ownerID)
	}
}
