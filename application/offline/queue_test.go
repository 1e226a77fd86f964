package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rxsync/pkg/errors"
	"rxsync/pkg/events"
)

func testQueue(t *testing.T) (*Queue, *Monitor, *events.Registry) {
	t.Helper()

	registry := events.NewRegistry(zap.NewNop())
	monitor := NewMonitor("http://unused.invalid/health", time.Hour, time.Second, zap.NewNop(), registry)
	t.Cleanup(monitor.Close)

	queue := NewQueue(monitor, registry, zap.NewNop())
	t.Cleanup(queue.Close)
	return queue, monitor, registry
}

func TestQueue_OnlineBypassesQueue(t *testing.T) {
	queue, _, _ := testQueue(t)

	pending := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})

	value, err := pending.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", value)
	assert.Zero(t, queue.Len())
}

func TestQueue_ReplayPreservesFIFOOrderAndIsolatesFailures(t *testing.T) {
	queue, monitor, _ := testQueue(t)
	monitor.ReportOffline()

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	op1 := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		record("op1")
		return nil, errors.FromHTTPStatus(http.StatusConflict, "duplicate sale")
	})
	op2 := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		record("op2")
		return "second", nil
	})
	op3 := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		record("op3")
		return "third", nil
	})

	assert.Equal(t, 3, queue.Len(), "offline mutations are deferred")

	monitor.ReportOnline()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// op1 fails, but its failure stays its own: op2 and op3 still run.
	_, err := op1.Result(ctx)
	require.Error(t, err)
	assert.Equal(t, "409", errors.Code(err))

	second, err := op2.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", second)

	third, err := op3.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, "third", third)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"op1", "op2", "op3"}, order)
}

func TestQueue_ReplayPausesWhenConnectivityDropsAgain(t *testing.T) {
	queue, monitor, _ := testQueue(t)
	monitor.ReportOffline()

	op1 := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		// Connectivity flaps while replaying.
		monitor.ReportOffline()
		return "ran", nil
	})
	op2Ran := make(chan struct{}, 1)
	queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		op2Ran <- struct{}{}
		return nil, nil
	})

	monitor.ReportOnline()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := op1.Result(ctx)
	require.NoError(t, err)

	select {
	case <-op2Ran:
		t.Fatal("replay must pause while offline")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, queue.Len())

	// The next reconnect resumes where replay stopped.
	monitor.ReportOnline()
	select {
	case <-op2Ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queued operation was not replayed after reconnect")
	}
}

func TestQueue_CloseSettlesQueuedOperations(t *testing.T) {
	registry := events.NewRegistry(zap.NewNop())
	monitor := NewMonitor("http://unused.invalid/health", time.Hour, time.Second, zap.NewNop(), registry)
	defer monitor.Close()
	queue := NewQueue(monitor, registry, zap.NewNop())

	monitor.ReportOffline()
	pending := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "never", nil
	})

	queue.Close()

	_, err := pending.Result(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsShutdown(err), "queued work is failed, not left hanging")

	// Submissions after Close settle immediately with the same error.
	late := queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	_, err = late.Result(context.Background())
	assert.True(t, errors.IsShutdown(err))
}

func TestMonitor_ProbeTransitions(t *testing.T) {
	var status int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer server.Close()

	setStatus := func(s int) {
		mu.Lock()
		status = s
		mu.Unlock()
	}

	registry := events.NewRegistry(zap.NewNop())
	monitor := NewMonitor(server.URL+"/health", time.Hour, time.Second, zap.NewNop(), registry)
	defer monitor.Close()

	var transitions []bool
	registry.Subscribe(events.EventConnectivityChanged, func(payload interface{}) {
		transitions = append(transitions, payload.(bool))
	})

	ctx := context.Background()

	// One failed probe is tolerated.
	setStatus(http.StatusInternalServerError)
	assert.False(t, monitor.Probe(ctx))
	assert.True(t, monitor.Online())

	// The second consecutive failure flips to Offline.
	assert.False(t, monitor.Probe(ctx))
	assert.False(t, monitor.Online())

	// A single success flips straight back.
	setStatus(http.StatusNoContent)
	assert.True(t, monitor.Probe(ctx))
	assert.True(t, monitor.Online())

	assert.Equal(t, []bool{false, true}, transitions)
}

func TestMonitor_RedirectCountsAsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	registry := events.NewRegistry(zap.NewNop())
	monitor := NewMonitor(server.URL, time.Hour, time.Second, zap.NewNop(), registry)
	defer monitor.Close()

	assert.True(t, monitor.Probe(context.Background()))
}

func TestMonitor_SuccessResetsFailureStreak(t *testing.T) {
	var status int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer server.Close()

	registry := events.NewRegistry(zap.NewNop())
	monitor := NewMonitor(server.URL, time.Hour, time.Second, zap.NewNop(), registry)
	defer monitor.Close()

	ctx := context.Background()

	mu.Lock()
	status = http.StatusBadGateway
	mu.Unlock()
	monitor.Probe(ctx)

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()
	monitor.Probe(ctx)

	// The earlier failure no longer counts toward the streak.
	mu.Lock()
	status = http.StatusBadGateway
	mu.Unlock()
	monitor.Probe(ctx)
	assert.True(t, monitor.Online())
}
