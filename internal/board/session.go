// Package board ties the element store, undo history, gesture builder and
// replication channel of one whiteboard view together.
package board

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"TeamBoard/internal/ai"
	"TeamBoard/internal/logging"
	boardnet "TeamBoard/internal/net"
	"TeamBoard/internal/render"
	"TeamBoard/internal/state"
)

// ChangeFunc receives a full redraw after the board or the live overlay
// changed.
type ChangeFunc func(render.Scene)

// Options configures a Session.
type Options struct {
	SessionID string
	// Origin identifies this client on the wire. Empty means a fresh id.
	Origin    string
	Transport boardnet.Transport
	// HistoryLimit caps undo depth; zero keeps every step.
	HistoryLimit int
	IDs          state.IDSource
	Logger       *zap.Logger
	Metrics      *boardnet.Metrics
}

// Session is one client's view of a shared whiteboard. All operations
// serialise on one mutex; change observers run after it is released.
type Session struct {
	id      string
	logger  *zap.Logger
	channel *boardnet.Channel

	mu        sync.Mutex
	store     *state.Store
	history   *state.History
	builder   *state.Builder
	tool      state.Tool
	style     state.Style
	observers map[int]ChangeFunc
	nextObs   int
	stopSync  func()
	closed    bool
}

// Open creates a session and joins its replication topic.
func Open(opts Options) (*Session, error) {
	if opts.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	logger := logging.OrNop(opts.Logger)
	origin := opts.Origin
	if origin == "" {
		origin = state.NewID()
	}

	s := &Session{
		id:        opts.SessionID,
		logger:    logger.Named("board").With(zap.String("session", opts.SessionID)),
		channel:   boardnet.NewChannel(opts.Transport, origin, logger, opts.Metrics),
		store:     state.NewStore(),
		history:   state.NewHistory(opts.HistoryLimit),
		builder:   state.NewBuilder(opts.IDs),
		tool:      state.ToolPen,
		style:     state.DefaultStyle(),
		observers: make(map[int]ChangeFunc),
	}
	s.stopSync = s.channel.OnRemoteUpdate(s.applyRemote)
	if err := s.channel.Join(opts.SessionID); err != nil {
		s.stopSync()
		return nil, fmt.Errorf("open board: %w", err)
	}
	s.logger.Info("board opened", zap.String("origin", origin))
	return s, nil
}

// Close leaves the session. Closing twice does nothing.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.observers = make(map[int]ChangeFunc)
	s.builder.Cancel()
	s.mu.Unlock()

	s.stopSync()
	s.channel.Leave(s.id)
	s.logger.Info("board closed")
}

func (s *Session) ID() string { return s.id }

// Connected reports whether local edits currently reach other clients.
func (s *Session) Connected() bool { return s.channel.Connected() }

// OnChange registers fn for redraws. The returned func removes it.
func (s *Session) OnChange(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// update runs fn under the lock and, when it reports a change, notifies
// observers with the resulting scene once the lock is released.
func (s *Session) update(fn func() bool) bool {
	s.mu.Lock()
	if s.closed || !fn() {
		s.mu.Unlock()
		return false
	}
	scene := s.sceneLocked()
	observers := make([]ChangeFunc, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(scene)
	}
	return true
}

func (s *Session) sceneLocked() render.Scene {
	var overlay *state.Transient
	if t, ok := s.builder.Transient(); ok {
		overlay = &t
	}
	return render.Project(s.store.Current(), overlay, s.style)
}

// Scene projects the current board and any gesture in progress.
func (s *Session) Scene() render.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneLocked()
}

// Elements returns a copy of the current board.
func (s *Session) Elements() state.Snapshot {
	return s.store.Current()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Tool returns the selected tool.
func (s *Session) Tool() state.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// Style returns the active colour and stroke width.
func (s *Session) Style() state.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// SetTool selects the tool used by the next gesture.
func (s *Session) SetTool(t state.Tool) {
	s.update(func() bool {
		if s.tool == t {
			return false
		}
		s.tool = t
		return true
	})
}

// SetColor changes the active colour. The live overlay follows it.
func (s *Session) SetColor(c string) {
	s.update(func() bool {
		if s.style.Color == c {
			return false
		}
		s.style.Color = c
		return true
	})
}

// SetStrokeWidth changes the active width, clamped to the toolbar range.
func (s *Session) SetStrokeWidth(w int) {
	w = max(state.MinStrokeWidth, min(w, state.MaxStrokeWidth))
	s.update(func() bool {
		if s.style.StrokeWidth == w {
			return false
		}
		s.style.StrokeWidth = w
		return true
	})
}

// PointerDown starts a gesture with the selected tool and style.
func (s *Session) PointerDown(p state.Point) {
	s.update(func() bool {
		s.builder.Begin(p, s.tool, s.style)
		return true
	})
}

// PointerMove extends the gesture in progress.
func (s *Session) PointerMove(p state.Point) {
	s.update(func() bool {
		if !s.builder.Drawing() {
			return false
		}
		s.builder.Move(p)
		return true
	})
}

// PointerUp finishes the gesture. It reports whether an element was added;
// degenerate gestures add nothing and leave history alone.
func (s *Session) PointerUp(p state.Point) bool {
	var added bool
	s.update(func() bool {
		if !s.builder.Drawing() {
			return false
		}
		if el, ok := s.builder.End(p); ok {
			s.commitLocked(func() state.Snapshot { return s.store.Append(el) })
			added = true
		}
		return true
	})
	return added
}

// PointerLeave drops the gesture in progress without adding anything.
func (s *Session) PointerLeave() {
	s.update(func() bool {
		if !s.builder.Drawing() {
			return false
		}
		s.builder.Cancel()
		return true
	})
}

// commitLocked records the current board for undo, applies edit and
// broadcasts the result.
func (s *Session) commitLocked(edit func() state.Snapshot) {
	s.history.Record(s.store.Current())
	next := edit()
	s.channel.Broadcast(next)
	s.logger.Debug("local edit", zap.Int("elements", len(next)))
}

// Undo restores the board before the last edit. It does nothing when there
// is nothing to undo.
func (s *Session) Undo() bool {
	return s.update(func() bool {
		prev, ok := s.history.Undo(s.store.Current())
		if !ok {
			return false
		}
		s.store.ReplaceAll(prev)
		s.channel.Broadcast(prev)
		return true
	})
}

// Redo reapplies the last undone edit.
func (s *Session) Redo() bool {
	return s.update(func() bool {
		next, ok := s.history.Redo(s.store.Current())
		if !ok {
			return false
		}
		s.store.ReplaceAll(next)
		s.channel.Broadcast(next)
		return true
	})
}

// Clear empties the board as one undoable edit. Clearing an empty board
// still drops redo and broadcasts the empty board.
func (s *Session) Clear() bool {
	return s.update(func() bool {
		s.commitLocked(func() state.Snapshot {
			s.store.ReplaceAll(state.Snapshot{})
			return state.Snapshot{}
		})
		return true
	})
}

// AddIdeas places one text label per idea as a single edit, each offset from
// the previous one.
func (s *Session) AddIdeas(ideas []string) []state.Element {
	if len(ideas) == 0 {
		return nil
	}
	var added []state.Element
	s.update(func() bool {
		added = make([]state.Element, 0, len(ideas))
		for i, idea := range ideas {
			added = append(added, s.builder.TextElement(ai.IdeaPrefix+idea, ai.Origin(i), ai.Style()))
		}
		s.commitLocked(func() state.Snapshot { return s.store.AppendAll(added) })
		return true
	})
	return added
}

// AddText places a label at origin in the active style. Blank text adds
// nothing.
func (s *Session) AddText(text string, origin state.Point) (state.Element, bool) {
	if strings.TrimSpace(text) == "" {
		return state.Element{}, false
	}
	var el state.Element
	ok := s.update(func() bool {
		el = s.builder.TextElement(text, origin, s.style)
		s.commitLocked(func() state.Snapshot { return s.store.Append(el) })
		return true
	})
	return el, ok
}

// Load replaces the board with a loaded file as one undoable edit.
func (s *Session) Load(elements state.Snapshot) {
	s.update(func() bool {
		s.commitLocked(func() state.Snapshot {
			s.store.ReplaceAll(elements)
			return s.store.Current()
		})
		return true
	})
}

// applyRemote adopts a snapshot from another client. History and any local
// gesture in progress are left as they are.
func (s *Session) applyRemote(remote state.Snapshot) {
	s.update(func() bool {
		s.store.ReplaceAll(remote)
		return true
	})
}
