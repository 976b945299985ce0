package board

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"TeamBoard/internal/ai"
	boardnet "TeamBoard/internal/net"
	"TeamBoard/internal/render"
	"TeamBoard/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seqIDs(prefix string) state.IDSource {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func openSession(t *testing.T, bus boardnet.Transport, name, session string) *Session {
	t.Helper()
	s, err := Open(Options{
		SessionID: session,
		Origin:    name,
		Transport: bus,
		IDs:       seqIDs(name),
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newBus(t *testing.T) *boardnet.MemoryBus {
	t.Helper()
	bus := boardnet.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func drawLine(s *Session, from, to state.Point) bool {
	s.PointerDown(from)
	s.PointerMove(state.Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2})
	return s.PointerUp(to)
}

func drawRect(s *Session, from, to state.Point) bool {
	s.SetTool(state.ToolRectangle)
	defer s.SetTool(state.ToolPen)
	s.PointerDown(from)
	s.PointerMove(to)
	return s.PointerUp(to)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(Options{Transport: boardnet.NewMemoryBus()})
	assert.Error(t, err)
	_, err = Open(Options{SessionID: "s"})
	assert.Error(t, err)
}

func TestSession_UndoRedoRoundTrip(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")

	var history []state.Snapshot
	for i := range 4 {
		history = append(history, s.Elements())
		p := float64(i * 10)
		require.True(t, drawLine(s, state.Point{X: p, Y: p}, state.Point{X: p + 5, Y: p + 8}))
	}
	final := s.Elements()
	require.Len(t, final, 4)

	// Each undo restores exactly the board before the matching edit.
	for i := 3; i >= 0; i-- {
		require.True(t, s.Undo())
		if diff := cmp.Diff(history[i], s.Elements()); diff != "" {
			t.Fatalf("undo %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	assert.False(t, s.Undo(), "undo on empty history is a no-op")

	for range 4 {
		require.True(t, s.Redo())
	}
	if diff := cmp.Diff(final, s.Elements()); diff != "" {
		t.Fatalf("redo did not restore board (-want +got):\n%s", diff)
	}
	assert.False(t, s.Redo(), "redo on empty stack is a no-op")
}

func TestSession_NewEditInvalidatesRedo(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")

	require.True(t, drawLine(s, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	require.True(t, drawLine(s, state.Point{X: 20, Y: 20}, state.Point{X: 30, Y: 30}))
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	require.True(t, drawRect(s, state.Point{X: 1, Y: 1}, state.Point{X: 4, Y: 4}))
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
	assert.Len(t, s.Elements(), 2)
}

func TestSession_DegenerateGestureLeavesHistoryAlone(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")

	s.PointerDown(state.Point{X: 5, Y: 5})
	assert.False(t, s.PointerUp(state.Point{X: 5, Y: 5}))

	s.PointerDown(state.Point{X: 5, Y: 5})
	s.PointerMove(state.Point{X: 50, Y: 50})
	s.PointerLeave()
	assert.False(t, s.PointerUp(state.Point{X: 60, Y: 60}), "pointer up after leaving adds nothing")

	s.SetTool(state.ToolText)
	s.PointerDown(state.Point{X: 1, Y: 1})
	assert.False(t, s.PointerUp(state.Point{X: 40, Y: 40}))

	assert.Empty(t, s.Elements())
	assert.False(t, s.CanUndo())
}

func TestSession_BackwardsRectangleRendersLikeForwards(t *testing.T) {
	a := openSession(t, newBus(t), "alice", "one")
	b := openSession(t, newBus(t), "bob", "two")

	require.True(t, drawRect(a, state.Point{X: 100, Y: 100}, state.Point{X: 50, Y: 50}))
	require.True(t, drawRect(b, state.Point{X: 50, Y: 50}, state.Point{X: 100, Y: 100}))

	assert.Equal(t, &state.Size{W: -50, H: -50}, a.Elements()[0].Extent, "stored as drawn")
	assert.Empty(t, cmp.Diff(a.Scene(), b.Scene()))
}

func TestSession_ReplicatesToPeers(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")

	require.True(t, drawLine(alice, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	require.Eventually(t, func() bool { return len(bob.Elements()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, cmp.Diff(alice.Elements(), bob.Elements()))

	// Remote updates do not touch the receiver's history.
	assert.False(t, bob.CanUndo())

	require.True(t, alice.Undo())
	require.Eventually(t, func() bool { return len(bob.Elements()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSession_LastWriterWins(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")
	carol := openSession(t, bus, "carol", "board")

	require.True(t, drawLine(alice, state.Point{X: 0, Y: 0}, state.Point{X: 1, Y: 1}))
	require.True(t, drawLine(alice, state.Point{X: 2, Y: 2}, state.Point{X: 3, Y: 3}))
	require.Eventually(t, func() bool { return len(carol.Elements()) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(bob.Elements()) == 2 }, time.Second, 5*time.Millisecond)

	// Bob clears; his empty board replaces everyone else's whole.
	require.True(t, bob.Clear())
	require.Eventually(t, func() bool { return len(carol.Elements()) == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(alice.Elements()) == 0 }, time.Second, 5*time.Millisecond)

	// Alice's history survives the remote replacement.
	assert.True(t, alice.CanUndo())
}

func TestSession_RemoteUpdateDuringGesture(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")

	bob.PointerDown(state.Point{X: 0, Y: 0})
	bob.PointerMove(state.Point{X: 4, Y: 4})

	require.True(t, drawLine(alice, state.Point{X: 10, Y: 10}, state.Point{X: 20, Y: 20}))
	require.Eventually(t, func() bool { return len(bob.Elements()) == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, bob.PointerUp(state.Point{X: 8, Y: 8}))
	els := bob.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, "alice-1", els[0].ID)
	assert.Equal(t, "bob-1", els[1].ID)
}

func TestSession_DisconnectedEditStaysLocal(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")

	bus.SetConnected(false)
	assert.False(t, alice.Connected())

	require.True(t, drawLine(alice, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	assert.Len(t, alice.Elements(), 1)
	assert.True(t, alice.CanUndo())
	assert.Never(t, func() bool { return len(bob.Elements()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	// The next edit after reconnecting carries the whole board.
	bus.SetConnected(true)
	require.True(t, drawLine(alice, state.Point{X: 20, Y: 20}, state.Point{X: 30, Y: 30}))
	require.Eventually(t, func() bool { return len(bob.Elements()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob, err := Open(Options{SessionID: "board", Origin: "bob", Transport: bus, Logger: zap.NewNop()})
	require.NoError(t, err)

	bob.Close()
	bob.Close()
	assert.False(t, bob.Connected())

	require.True(t, drawLine(alice, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	assert.Never(t, func() bool { return len(bob.Elements()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.False(t, drawLine(bob, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}), "closed session ignores input")
}

func TestSession_AddIdeasFallbackLayout(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")
	require.True(t, drawLine(s, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))

	added := s.AddIdeas(ai.Fallback)
	require.Len(t, added, len(ai.Fallback))

	els := s.Elements()
	require.Len(t, els, 1+len(ai.Fallback))
	for i, idea := range ai.Fallback {
		el := els[1+i]
		assert.Equal(t, state.KindText, el.Kind)
		assert.Equal(t, "💡 "+idea, el.Text)
		assert.Equal(t, "#8B5CF6", el.Color)
		assert.Equal(t, 1, el.StrokeWidth)
		assert.Equal(t, state.Point{X: float64(100 + 20*i), Y: float64(100 + 40*i)}, el.Origin)
	}

	// All ideas are one edit.
	require.True(t, s.Undo())
	assert.Len(t, s.Elements(), 1)

	assert.Nil(t, s.AddIdeas(nil))
}

func TestSession_LoadIsUndoable(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")

	loaded := state.Snapshot{{ID: "x", Kind: state.KindText, Origin: state.Point{X: 1, Y: 2}, Text: "hi", Color: "#000000", StrokeWidth: 2}}
	alice.Load(loaded)
	assert.Empty(t, cmp.Diff(loaded, alice.Elements()))
	require.Eventually(t, func() bool { return len(bob.Elements()) == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, alice.Undo())
	assert.Empty(t, alice.Elements())
}

func TestSession_AddText(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")
	s.SetColor("#F59E0B")
	s.SetStrokeWidth(5)

	_, ok := s.AddText("   ", state.Point{X: 1, Y: 1})
	assert.False(t, ok)

	el, ok := s.AddText("Retro notes", state.Point{X: 30, Y: 40})
	require.True(t, ok)
	assert.Equal(t, state.Element{
		ID:          "alice-1",
		Kind:        state.KindText,
		Origin:      state.Point{X: 30, Y: 40},
		Text:        "Retro notes",
		Color:       "#F59E0B",
		StrokeWidth: 5,
	}, el)
	assert.True(t, s.CanUndo())
}

func TestSession_ClearInvalidatesRedo(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")

	require.True(t, drawLine(s, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	// Clearing an already empty board is still an edit.
	assert.True(t, s.Clear())
	assert.False(t, s.CanRedo())
	assert.True(t, s.CanUndo())
	assert.False(t, s.Redo())
	assert.Empty(t, s.Elements())
}

func TestSession_ClearEmptyBoardResyncsPeers(t *testing.T) {
	bus := newBus(t)
	alice := openSession(t, bus, "alice", "board")
	bob := openSession(t, bus, "bob", "board")

	// Bob's stroke never reaches alice.
	bus.SetConnected(false)
	require.True(t, drawLine(bob, state.Point{X: 0, Y: 0}, state.Point{X: 10, Y: 10}))
	bus.SetConnected(true)
	require.Empty(t, alice.Elements())
	require.Len(t, bob.Elements(), 1)

	assert.True(t, alice.Clear())
	require.Eventually(t, func() bool { return len(bob.Elements()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSession_StyleAndOverlay(t *testing.T) {
	s := openSession(t, newBus(t), "alice", "board")

	s.SetStrokeWidth(0)
	assert.Equal(t, state.MinStrokeWidth, s.Style().StrokeWidth)
	s.SetStrokeWidth(99)
	assert.Equal(t, state.MaxStrokeWidth, s.Style().StrokeWidth)

	var (
		mu     sync.Mutex
		scenes []render.Scene
	)
	cancel := s.OnChange(func(sc render.Scene) {
		mu.Lock()
		defer mu.Unlock()
		scenes = append(scenes, sc)
	})

	s.PointerDown(state.Point{X: 0, Y: 0})
	s.PointerMove(state.Point{X: 5, Y: 5})
	s.SetColor("#10B981")

	scene := s.Scene()
	last := scene.Ops[len(scene.Ops)-1]
	assert.True(t, last.Transient)
	assert.Equal(t, render.ParseColor("#10B981"), last.Color, "overlay follows the active colour")

	s.PointerUp(state.Point{X: 9, Y: 9})
	el := s.Elements()[0]
	assert.Equal(t, state.Palette[0], el.Color, "element keeps the colour captured at pointer down")

	mu.Lock()
	assert.Len(t, scenes, 4)
	mu.Unlock()

	cancel()
	s.SetColor("#000000")
	mu.Lock()
	assert.Len(t, scenes, 4)
	mu.Unlock()
}
