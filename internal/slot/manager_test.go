package slot

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRespectsLimit(t *testing.T) {
	m := NewManager(2)

	require.True(t, m.TryAcquire())
	require.True(t, m.TryAcquire())
	require.False(t, m.TryAcquire(), "third acquire must fail")
	assert.Equal(t, 2, m.InUse())

	m.Release()
	require.True(t, m.TryAcquire())
}

func TestReleaseNeverBelowZero(t *testing.T) {
	m := NewManager(1)
	m.Release()
	m.Release()
	assert.Equal(t, 0, m.InUse())

	require.True(t, m.TryAcquire())
	assert.Equal(t, 1, m.InUse())
}

func TestConcurrentAcquireExactWinners(t *testing.T) {
	const (
		monitors = 32
		slots    = 4
	)
	m := NewManager(slots)

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		acquired atomic.Int64
	)
	for i := 0; i < monitors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if m.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, slots, acquired.Load(), "exactly the slot count may win")
	assert.Equal(t, slots, m.InUse())
	assert.False(t, m.TryAcquire())
}

func TestAcquireReleaseChurnStaysBounded(t *testing.T) {
	const slots = 3
	m := NewManager(slots)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if m.TryAcquire() {
					if got := m.InUse(); got > slots || got < 1 {
						t.Errorf("slot count out of bounds: %d", got)
						m.Release()
						return
					}
					m.Release()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.InUse())
}
