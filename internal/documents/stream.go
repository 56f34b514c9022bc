package documents

import "sync"

// Update is the event pushed to live-update subscribers when a document's
// status changes.
type Update struct {
	DocumentID string `json:"documentId"`
	StorageKey string `json:"storageKey"`
	Status     Status `json:"status"`
}

// Hub fans status updates out to per-owner subscribers. Slow subscribers
// drop events rather than block the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Update]struct{}
}

// NewHub constructs a Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Update]struct{})}
}

// Subscribe registers a channel for an owner's updates. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(ownerEmail string) (<-chan Update, func()) {
	ch := make(chan Update, 8)

	h.mu.Lock()
	set, ok := h.subs[ownerEmail]
	if !ok {
		set = make(map[chan Update]struct{})
		h.subs[ownerEmail] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[ownerEmail]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, ownerEmail)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an update to all of the owner's subscribers.
func (h *Hub) Publish(ownerEmail string, update Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ownerEmail] {
		select {
		case ch <- update:
		default:
		}
	}
}
