package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolCapsParallelism(t *testing.T) {
	p := New()
	p.SetMaxParallelism(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	release := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		p.WaitToStart(func() {
			defer wg.Done()
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			<-release
			running.Add(-1)
		})
		if i == 1 {
			// The first two tasks occupy both slots; further submissions must
			// block until one finishes, so release slots from here on.
			go func() {
				for j := 0; j < 8; j++ {
					release <- struct{}{}
				}
			}()
		}
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolInlineWhenDisabled(t *testing.T) {
	p := New()
	p.SetMaxParallelism(0)

	ran := false
	p.WaitToStart(func() { ran = true })
	// Inline execution: done before WaitToStart returns.
	require.True(t, ran)
}
