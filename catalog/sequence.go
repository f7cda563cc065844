package catalog

import "sync"

// Sequence tracks the current step of an item. It is safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	item Item
	step int
}

// NewSequence starts at step 0.
func NewSequence(item Item) *Sequence {
	return &Sequence{item: item}
}

// Item returns the item being stepped through.
func (s *Sequence) Item() Item { return s.item }

// Step returns the current zero-based step.
func (s *Sequence) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Current returns the model identifier for the current step.
func (s *Sequence) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ModelID(s.item.Code, Kind3D, s.step)
}

// Text returns the instruction text for the current step, if any.
func (s *Sequence) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step < len(s.item.Texts) {
		return s.item.Texts[s.step]
	}
	return ""
}

// Next advances one step and reports whether it moved. On the last step it
// stays put.
func (s *Sequence) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step >= s.item.Steps-1 {
		return false
	}
	s.step++
	return true
}

// Prev goes back one step and reports whether it moved.
func (s *Sequence) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == 0 {
		return false
	}
	s.step--
	return true
}

// IsLast reports whether the current step is the final one.
func (s *Sequence) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step == s.item.Steps-1
}

// Neighbours returns the model identifiers of the adjacent steps, for
// prefetching.
func (s *Sequence) Neighbours() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	if s.step > 0 {
		ids = append(ids, ModelID(s.item.Code, Kind3D, s.step-1))
	}
	if s.step < s.item.Steps-1 {
		ids = append(ids, ModelID(s.item.Code, Kind3D, s.step+1))
	}
	return ids
}
