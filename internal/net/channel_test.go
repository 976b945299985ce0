package net

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"TeamBoard/internal/state"
)

// recorder collects remote snapshots delivered to an observer.
type recorder struct {
	mu  sync.Mutex
	got []state.Snapshot
}

func (r *recorder) observe(s state.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
}

func (r *recorder) all() []state.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]state.Snapshot(nil), r.got...)
}

func (r *recorder) last() state.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return nil
	}
	return r.got[len(r.got)-1]
}

func snapshotOf(ids ...string) state.Snapshot {
	s := state.Snapshot{}
	for _, id := range ids {
		s = append(s, state.Element{
			ID:          id,
			Kind:        state.KindPath,
			Points:      []state.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
			Color:       "#000000",
			StrokeWidth: 2,
		})
	}
	return s
}

func TestChannel_BroadcastReachesOtherMembers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, alice.Join("board-1"))
	require.NoError(t, bob.Join("board-1"))

	var aliceGot, bobGot recorder
	alice.OnRemoteUpdate(aliceGot.observe)
	bob.OnRemoteUpdate(bobGot.observe)

	want := snapshotOf("a1", "a2")
	alice.Broadcast(want)

	require.Eventually(t, func() bool { return len(bobGot.all()) == 1 }, time.Second, 5*time.Millisecond)
	if diff := cmp.Diff(want, bobGot.last()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	// Own broadcast is never fed back.
	assert.Never(t, func() bool { return len(aliceGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	alice.Leave("board-1")
	bob.Leave("board-1")
}

func TestChannel_SessionsAreIsolated(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	carol := NewChannel(bus, "carol", zap.NewNop(), nil)
	require.NoError(t, alice.Join("board-1"))
	require.NoError(t, carol.Join("board-2"))

	var carolGot recorder
	carol.OnRemoteUpdate(carolGot.observe)

	alice.Broadcast(snapshotOf("x"))
	assert.Never(t, func() bool { return len(carolGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestChannel_JoinReplacesSubscription(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, bob.Join("old"))
	require.NoError(t, bob.Join("new"))
	assert.Equal(t, "new", bob.Session())

	var bobGot recorder
	bob.OnRemoteUpdate(bobGot.observe)

	require.NoError(t, alice.Join("old"))
	alice.Broadcast(snapshotOf("stale"))
	assert.Never(t, func() bool { return len(bobGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, alice.Join("new"))
	alice.Broadcast(snapshotOf("fresh"))
	require.Eventually(t, func() bool { return len(bobGot.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fresh", bobGot.last()[0].ID)
}

func TestChannel_LeaveIsIdempotent(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	c := NewChannel(bus, "alice", zap.NewNop(), nil)

	assert.NotPanics(t, func() { c.Leave("never-joined") })
	assert.False(t, c.Connected())

	require.NoError(t, c.Join("board"))
	assert.True(t, c.Connected())

	c.Leave("board")
	c.Leave("board")
	assert.False(t, c.Connected())
	assert.Empty(t, c.Session())
}

func TestChannel_DisconnectedBroadcastIsSilent(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	metrics := NewMetrics(nil)
	alice := NewChannel(bus, "alice", zap.New(core), metrics)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, alice.Join("board"))
	require.NoError(t, bob.Join("board"))

	var bobGot recorder
	bob.OnRemoteUpdate(bobGot.observe)

	bus.SetConnected(false)
	assert.False(t, alice.Connected())
	assert.NotPanics(t, func() { alice.Broadcast(snapshotOf("lost")) })

	assert.Never(t, func() bool { return len(bobGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BroadcastsDropped.WithLabelValues("disconnected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.BroadcastsSent))
	assert.Equal(t, 1, logs.FilterMessage("broadcast dropped").Len())
}

func TestChannel_BroadcastWithoutJoinIsDropped(t *testing.T) {
	metrics := NewMetrics(nil)
	c := NewChannel(NewMemoryBus(), "alice", zap.NewNop(), metrics)
	c.Broadcast(snapshotOf("a"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BroadcastsDropped.WithLabelValues("not_joined")))
}

func TestChannel_LastWriterWins(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	carol := NewChannel(bus, "carol", zap.NewNop(), nil)
	for _, c := range []*Channel{alice, bob, carol} {
		require.NoError(t, c.Join("board"))
	}

	var carolGot recorder
	carol.OnRemoteUpdate(carolGot.observe)

	a := snapshotOf("a1", "a2", "a3")
	b := snapshotOf("b1")

	alice.Broadcast(a)
	require.Eventually(t, func() bool { return len(carolGot.all()) == 1 }, time.Second, 5*time.Millisecond)
	bob.Broadcast(b)
	require.Eventually(t, func() bool { return len(carolGot.all()) == 2 }, time.Second, 5*time.Millisecond)

	// The later snapshot arrives whole; nothing from a is merged into it.
	if diff := cmp.Diff(b, carolGot.last()); diff != "" {
		t.Fatalf("expected exactly b (-want +got):\n%s", diff)
	}
}

func TestChannel_UndecodablePayloadIgnored(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, bob.Join("board"))
	var bobGot recorder
	bob.OnRemoteUpdate(bobGot.observe)

	require.NoError(t, bus.Publish(Topic("board"), []byte("{not json")))
	other, err := json.Marshal(Envelope{Event: "chat_message", Origin: "x"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(Topic("board"), other))

	assert.Never(t, func() bool { return len(bobGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestChannel_EmptySnapshotClearsRemote(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, alice.Join("board"))
	require.NoError(t, bob.Join("board"))

	var bobGot recorder
	bob.OnRemoteUpdate(bobGot.observe)

	alice.Broadcast(state.Snapshot{})
	require.Eventually(t, func() bool { return len(bobGot.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, bobGot.last())
	assert.Empty(t, bobGot.last())
}

func TestChannel_CancelObserver(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", zap.NewNop(), nil)
	bob := NewChannel(bus, "bob", zap.NewNop(), nil)
	require.NoError(t, alice.Join("board"))
	require.NoError(t, bob.Join("board"))

	var bobGot recorder
	cancel := bob.OnRemoteUpdate(bobGot.observe)
	cancel()

	alice.Broadcast(snapshotOf("a"))
	assert.Never(t, func() bool { return len(bobGot.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestChannel_NilLoggerAndMetrics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	bus := NewMemoryBus()
	defer bus.Close()

	alice := NewChannel(bus, "alice", nil, nil)
	bob := NewChannel(bus, "bob", nil, nil)
	require.NoError(t, alice.Join("board"))
	require.NoError(t, bob.Join("board"))

	var bobGot recorder
	bob.OnRemoteUpdate(bobGot.observe)
	alice.Broadcast(snapshotOf("a"))
	require.Eventually(t, func() bool { return len(bobGot.all()) == 1 }, time.Second, 5*time.Millisecond)

	alice.Leave("board")
	bob.Leave("board")
}
