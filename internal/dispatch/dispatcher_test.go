package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_OnEmitOff(t *testing.T) {
	d := New[string]()

	var got []string
	sub := d.On("alert", func(channel, payload string) {
		got = append(got, channel+":"+payload)
	})

	d.Emit("alert", "one")
	d.Emit("other", "ignored")
	require.Equal(t, []string{"alert:one"}, got)

	d.Off(sub)
	d.Emit("alert", "two")
	require.Equal(t, []string{"alert:one"}, got)
}

func TestDispatcher_WildcardReceivesEverything(t *testing.T) {
	d := New[int]()

	var channels []string
	var payloads []int
	d.On(Wildcard, func(channel string, payload int) {
		channels = append(channels, channel)
		payloads = append(payloads, payload)
	})

	d.Emit("fl_update", 1)
	d.Emit("ids_update", 2)

	require.Equal(t, []string{"fl_update", "ids_update"}, channels)
	require.Equal(t, []int{1, 2}, payloads)
}

func TestDispatcher_WildcardNotDoubledForNamedListeners(t *testing.T) {
	d := New[int]()

	calls := 0
	d.On("a", func(string, int) { calls++ })
	d.On(Wildcard, func(string, int) { calls++ })

	d.Emit("a", 1)
	require.Equal(t, 2, calls)

	// Emitting directly on the wildcard channel must not invoke wildcard
	// listeners twice.
	calls = 0
	d.Emit(Wildcard, 1)
	require.Equal(t, 1, calls)
}

func TestDispatcher_OnceFiresOnceAndDeregistersFirst(t *testing.T) {
	d := New[int]()

	calls := 0
	d.Once("status", func(channel string, payload int) {
		calls++
		// The registration is gone before the handler runs.
		require.Equal(t, 0, d.ListenerCount("status"))
	})

	require.Equal(t, 1, d.ListenerCount("status"))
	d.Emit("status", 1)
	d.Emit("status", 2)
	require.Equal(t, 1, calls)
}

// Emit snapshots handlers before running them, so two concurrent emits can
// both hold the once-wrapper; the handler itself must still run only once.
func TestDispatcher_OnceSurvivesConcurrentEmits(t *testing.T) {
	d := New[int]()

	var calls atomic.Int32
	d.Once("status", func(string, int) { calls.Add(1) })

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			d.Emit("status", n)
		}(i)
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 0, d.ListenerCount("status"))
}

func TestDispatcher_RemovingLastListenerRemovesChannel(t *testing.T) {
	d := New[int]()

	a := d.On("ch", func(string, int) {})
	b := d.On("ch", func(string, int) {})
	require.Equal(t, 2, d.ListenerCount("ch"))

	d.Off(a)
	require.Equal(t, 1, d.ListenerCount("ch"))
	d.Off(b)
	require.Equal(t, 0, d.ListenerCount("ch"))

	// No dangling empty set left behind.
	d.mu.Lock()
	_, exists := d.channels["ch"]
	d.mu.Unlock()
	require.False(t, exists)
}

func TestDispatcher_OffUnknownTokenIsNoop(t *testing.T) {
	d := New[int]()

	d.Off(Subscription{Channel: "missing"})

	sub := d.On("ch", func(string, int) {})
	d.Off(Subscription{Channel: "ch"}) // wrong id
	require.Equal(t, 1, d.ListenerCount("ch"))
	d.Off(sub)
}

func TestDispatcher_HandlerMaySubscribeDuringDispatch(t *testing.T) {
	d := New[int]()

	var late []int
	d.Once("ch", func(string, int) {
		d.On("ch", func(_ string, payload int) {
			late = append(late, payload)
		})
	})

	d.Emit("ch", 1)
	d.Emit("ch", 2)
	require.Equal(t, []int{2}, late)
}

func TestDispatcher_Clear(t *testing.T) {
	d := New[int]()

	d.On("a", func(string, int) {})
	d.On(Wildcard, func(string, int) {})
	d.Clear()

	require.Equal(t, 0, d.ListenerCount("a"))
	require.Equal(t, 0, d.ListenerCount(Wildcard))
}
