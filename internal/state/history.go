package state

// History keeps linear undo/redo stacks of whole snapshots.
//
// Limit caps the undo depth; zero means unbounded. When the cap is reached the
// oldest entry is dropped.
type History struct {
	Limit int

	undo []Snapshot
	redo []Snapshot
}

func NewHistory(limit int) *History {
	return &History{Limit: limit}
}

// Record pushes the state to return to on undo and invalidates redo.
func (h *History) Record(s Snapshot) {
	h.pushUndo(s)
	h.redo = nil
}

func (h *History) pushUndo(s Snapshot) {
	h.undo = append(h.undo, s.Clone())
	if h.Limit > 0 && len(h.undo) > h.Limit {
		kept := make([]Snapshot, h.Limit)
		copy(kept, h.undo[len(h.undo)-h.Limit:])
		h.undo = kept
	}
}

// Undo pops the previous state. current is pushed on the redo stack. The
// second return is false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return prev.Clone(), true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.pushUndo(current)
	return next.Clone(), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth reports the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}
