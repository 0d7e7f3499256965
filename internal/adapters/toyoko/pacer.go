package toyoko

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// pacer adds a uniform random delay in [0, jitter) on top of the limiter's
// fixed request floor. The sleep function is swappable so tests can run
// against a virtual clock.
type pacer struct {
	jitter time.Duration
	rng    *rand.Rand
	sleep  func(context.Context, time.Duration) error
}

func newPacer(jitter time.Duration) *pacer {
	if jitter < 0 {
		jitter = 0
	}
	var seed [8]byte
	_, _ = crand.Read(seed[:])
	return &pacer{
		jitter: jitter,
		rng:    rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:])))),
		sleep:  sleepErrCtx,
	}
}

func (p *pacer) wait(ctx context.Context) error {
	if p.jitter == 0 {
		return nil
	}
	return p.sleep(ctx, time.Duration(p.rng.Int63n(int64(p.jitter))))
}

func sleepErrCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns an exponential retry delay (200ms, 400ms, 800ms, ...)
// with up to +50% random jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
