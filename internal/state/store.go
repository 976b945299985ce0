package state

import "sync"

// Store is the in-memory ordered element list of one board. It holds no
// history; every mutation replaces the whole snapshot.
type Store struct {
	elements Snapshot
	mu       sync.RWMutex
}

func NewStore() *Store {
	return &Store{elements: Snapshot{}}
}

// Append adds e on top of the board and returns the resulting snapshot.
func (s *Store) Append(e Element) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Snapshot, 0, len(s.elements)+1)
	next = append(next, s.elements...)
	next = append(next, e.Clone())
	s.elements = next
	return next.Clone()
}

// AppendAll adds several elements as one transition.
func (s *Store) AppendAll(es []Element) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Snapshot, 0, len(s.elements)+len(es))
	next = append(next, s.elements...)
	for _, e := range es {
		next = append(next, e.Clone())
	}
	s.elements = next
	return next.Clone()
}

// ReplaceAll swaps the board contents for a copy of elements.
func (s *Store) ReplaceAll(elements Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = elements.Clone()
}

// Current returns a copy of the board contents.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elements.Clone()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}
