package app

import (
	"sync"
	"time"
)

// publishInterval is the minimum spacing between feed updates. Detection
// results arrive around 30Hz; pushing every one of them to websocket
// clients is noise.
const publishInterval = 100 * time.Millisecond

// Update is one entry of the score feed.
type Update struct {
	Similarity         int    `json:"similarity"`
	State              string `json:"state"`
	WaitRemaining      int    `json:"waitRemaining"`
	CountdownRemaining int    `json:"countdownRemaining"`
	Index              int    `json:"index"`
	Length             int    `json:"length"`
	Ready              bool   `json:"ready"`
}

// Publisher fans score updates out to subscribers, throttled: updates that
// change only the similarity value are dropped while within publishInterval
// of the last delivery, and identical consecutive updates are suppressed
// entirely. Updates that change anything else (state, target index, timers,
// readiness) are delivered immediately, so clients always see the machine's
// final word even when it lands inside the window. A slow subscriber misses
// updates rather than blocking the pipeline.
type Publisher struct {
	mu       sync.Mutex
	subs     map[chan Update]struct{}
	last     Update
	lastSent time.Time
	sentAny  bool

	now func() time.Time
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[chan Update]struct{}),
		now:  time.Now,
	}
}

// Subscribe registers a feed consumer. The returned cancel func must be
// called when the consumer goes away.
func (p *Publisher) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	if p.sentAny {
		ch <- p.last // current state immediately on attach
	}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// Publish offers an update to the feed. It is dropped when nothing changed
// since the last delivery, or when only the similarity moved and the last
// delivery was under publishInterval ago.
func (p *Publisher) Publish(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sentAny {
		if u == p.last {
			return
		}
		if similarityOnlyChange(p.last, u) && p.now().Sub(p.lastSent) < publishInterval {
			return
		}
	}

	p.last = u
	p.lastSent = p.now()
	p.sentAny = true

	for ch := range p.subs {
		select {
		case ch <- u:
		default:
			// subscriber lagging, drop
		}
	}
}

// similarityOnlyChange reports whether prev and next differ in nothing but
// the similarity value.
func similarityOnlyChange(prev, next Update) bool {
	prev.Similarity = next.Similarity
	return prev == next
}

// Subscribers returns the current subscriber count.
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
