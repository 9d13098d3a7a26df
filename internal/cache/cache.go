// Package cache memoizes target pose extraction results keyed by image
// reference, with single-flight semantics for concurrent lookups.
package cache

import (
	"context"
	"sync"

	"github.com/danceframe/danceframe/internal/pose"
)

// ExtractFunc extracts the body pose from a target image. It returns
// (nil, nil) when the engine ran but found no body, a deliberate outcome
// that is cached and never retried.
type ExtractFunc func(ctx context.Context, imageRef string) (*pose.PoseSet, error)

// entry is a single in-flight or completed extraction. done is closed when
// the result fields are final.
type entry struct {
	done chan struct{}
	pose *pose.PoseSet
	err  error
}

// LandmarkCache memoizes pose extraction per image reference.
//
// The first Resolve for a given reference kicks off exactly one extraction;
// concurrent Resolve calls for the same reference share that single
// extraction rather than issuing duplicate work. Both a detected pose and a
// "no pose in this image" result are cached until InvalidateAll. Transport
// errors from the extractor are returned to every waiter but are not cached,
// so a later Resolve may retry.
//
// Entries for different references are independent; bookkeeping for the same
// reference is atomic with respect to concurrent Resolve calls.
type LandmarkCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	extract ExtractFunc
}

// New creates a LandmarkCache backed by the given extraction function.
func New(extract ExtractFunc) *LandmarkCache {
	return &LandmarkCache{
		entries: make(map[string]*entry),
		extract: extract,
	}
}

// Resolve returns the extracted pose for imageRef, running the extraction at
// most once per reference. A nil pose with nil error means extraction
// completed but no body was detected in the target image.
func (c *LandmarkCache) Resolve(ctx context.Context, imageRef string) (*pose.PoseSet, error) {
	c.mu.Lock()
	if e, ok := c.entries[imageRef]; ok {
		c.mu.Unlock()
		return c.wait(ctx, e)
	}

	e := &entry{done: make(chan struct{})}
	c.entries[imageRef] = e
	c.mu.Unlock()

	e.pose, e.err = c.extract(ctx, imageRef)

	if e.err != nil {
		// Failed extractions are not memoized: drop the entry before
		// releasing waiters so the next Resolve retries.
		c.mu.Lock()
		if c.entries[imageRef] == e {
			delete(c.entries, imageRef)
		}
		c.mu.Unlock()
	}

	close(e.done)
	return e.pose, e.err
}

// Peek returns the cached pose for imageRef without triggering extraction.
// The second return value reports whether a completed entry exists.
func (c *LandmarkCache) Peek(imageRef string) (*pose.PoseSet, bool) {
	c.mu.Lock()
	e, ok := c.entries[imageRef]
	c.mu.Unlock()

	if !ok {
		return nil, false
	}

	select {
	case <-e.done:
		if e.err != nil {
			return nil, false
		}
		return e.pose, true
	default:
		return nil, false
	}
}

// InvalidateAll drops every cached entry. In-flight extractions finish but
// their results are rediscovered on the next Resolve.
func (c *LandmarkCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of cached or in-flight entries.
func (c *LandmarkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// wait blocks until the shared extraction completes or the caller's context
// is canceled.
func (c *LandmarkCache) wait(ctx context.Context, e *entry) (*pose.PoseSet, error) {
	select {
	case <-e.done:
		return e.pose, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
