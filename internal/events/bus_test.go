package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInEmissionOrder(t *testing.T) {
	bus := NewBus(4)

	var mu sync.Mutex
	var got []EventType
	bus.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})

	bus.Emit(NewEvent(JobStarted, ""))
	bus.Emit(NewEvent(RepoStarted, "a"))
	bus.Emit(NewEvent(RepoCompleted, "a"))
	bus.Emit(NewEvent(JobFinished, ""))

	require.NoError(t, bus.Close())

	assert.Equal(t, []EventType{JobStarted, RepoStarted, RepoCompleted, JobFinished}, got)
}

func TestBus_EmitNeverBlocksSlowConsumer(t *testing.T) {
	bus := NewBus(1)

	release := make(chan struct{})
	var count int
	bus.Subscribe(func(e Event) {
		<-release
		count++
	})

	// A slow handler must not stall producers: all emits return immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Emit(NewEvent(RepoCompleted, "r"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow consumer")
	}

	close(release)
	require.NoError(t, bus.Close())
	assert.Equal(t, 100, count)
}

func TestBus_CloseDrainsQueue(t *testing.T) {
	bus := NewBus(8)

	var mu sync.Mutex
	var count int
	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for i := 0; i < 50; i++ {
		bus.Emit(NewEvent(RepoStarted, "r"))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, 50, count, "Close must deliver every queued event")
}

func TestBus_EmitAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(1)

	var count int
	bus.Subscribe(func(e Event) { count++ })

	require.NoError(t, bus.Close())
	bus.Emit(NewEvent(RepoStarted, "r"))

	assert.Equal(t, 0, count)
}

func TestBus_SetsTimestampOnEmit(t *testing.T) {
	bus := NewBus(1)

	var got Event
	bus.Subscribe(func(e Event) { got = e })

	bus.Emit(NewEvent(JobStarted, ""))
	require.NoError(t, bus.Close())

	assert.False(t, got.Time.IsZero(), "bus should stamp events on emit")
}

func TestBus_ConcurrentEmitters(t *testing.T) {
	bus := NewBus(16)

	var mu sync.Mutex
	var count int
	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				bus.Emit(NewEvent(RepoCompleted, "r"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, bus.Close())

	assert.Equal(t, 200, count)
}
