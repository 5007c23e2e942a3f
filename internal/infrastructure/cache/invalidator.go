// Package cache carries the asynchronous invalidation worker that sits
// between identity mutations and the credential cache.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/microgate/platform/internal/api/metrics"
	"github.com/microgate/platform/internal/core/ports"
)

const (
	channelBuffer = 256
	deleteTimeout = 2 * time.Second
)

type job struct {
	keys   []string
	prefix string
}

// Invalidator performs fire-and-forget cache deletes off the request path.
// Failures are logged and dropped: the cache is advisory and a missed delete
// is repaired by TTL expiry.
type Invalidator struct {
	cache ports.CredentialCache
	jobs  chan job
	log   zerolog.Logger
}

func NewInvalidator(cache ports.CredentialCache, log zerolog.Logger) *Invalidator {
	return &Invalidator{
		cache: cache,
		jobs:  make(chan job, channelBuffer),
		log:   log,
	}
}

// Start launches the worker goroutine. The worker stops when ctx is
// cancelled; queued jobs still in the channel are dropped at that point.
func (i *Invalidator) Start(ctx context.Context) {
	go i.run(ctx)
}

// Invalidate queues exact-key deletes. Non-blocking: when the queue is full
// the job is dropped and logged, never back-pressured onto a request.
func (i *Invalidator) Invalidate(keys ...string) {
	if len(keys) == 0 {
		return
	}
	i.enqueue(job{keys: keys})
}

// InvalidatePrefix queues a prefix-scan delete.
func (i *Invalidator) InvalidatePrefix(prefix string) {
	i.enqueue(job{prefix: prefix})
}

func (i *Invalidator) enqueue(j job) {
	select {
	case i.jobs <- j:
	default:
		i.log.Warn().Strs("keys", j.keys).Str("prefix", j.prefix).Msg("invalidation queue full, job dropped")
	}
}

func (i *Invalidator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-i.jobs:
			if !ok {
				return
			}
			i.process(ctx, j)
		}
	}
}

func (i *Invalidator) process(ctx context.Context, j job) {
	opCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	var err error
	if j.prefix != "" {
		err = i.cache.DeleteByPrefix(opCtx, j.prefix)
	} else {
		err = i.cache.Delete(opCtx, j.keys...)
	}
	if err != nil {
		metrics.CacheOpsTotal.WithLabelValues("delete", "error").Inc()
		i.log.Warn().Err(err).Strs("keys", j.keys).Str("prefix", j.prefix).Msg("cache invalidation failed")
		return
	}
	metrics.CacheOpsTotal.WithLabelValues("delete", "ok").Inc()
}
