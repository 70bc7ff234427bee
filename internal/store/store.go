// Package store holds the mutable state of one questionnaire session. All writes
// go through its intent methods; rules run as pure engine functions over copies.
package store

import (
	"sync"

	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
)

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	Answers    map[int]model.Answer
	States     map[int]model.SubmissionState
	Unlocked   engine.Set
	Unanswered map[int]string
	Finalized  bool
}

// Store is the single owner of a session's answer map and unlocked set
type Store struct {
	mu         sync.RWMutex
	catalog    *model.Catalog
	mode       engine.UnlockMode
	answers    map[int]model.Answer
	states     map[int]model.SubmissionState
	unlocked   engine.Set
	unanswered map[int]string
	finalized  bool
}

// New creates an empty store over catalog
func New(catalog *model.Catalog, mode engine.UnlockMode) *Store {
	return &Store{
		catalog:    catalog,
		mode:       mode,
		answers:    make(map[int]model.Answer),
		states:     make(map[int]model.SubmissionState),
		unlocked:   make(engine.Set),
		unanswered: make(map[int]string),
	}
}

// Catalog returns the questionnaire catalog the store was built for
func (s *Store) Catalog() *model.Catalog {
	return s.catalog
}

// SetAnswer records the local value of a question regardless of validity
func (s *Store) SetAnswer(questionID int, answer model.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if answer == nil {
		answer = model.Null{}
	}
	s.answers[questionID] = answer
}

// Answer returns the local value of a question
func (s *Store) Answer(questionID int) (model.Answer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[questionID]
	return a, ok
}

// Answers returns a copy of the answer map
func (s *Store) Answers() map[int]model.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAnswers(s.answers)
}

// MarkSubmissionState records the outcome of the latest save attempt
func (s *Store) MarkSubmissionState(questionID int, state model.SubmissionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[questionID] = state
}

// SubmissionState returns the save state of a question, none when never submitted
func (s *Store) SubmissionState(questionID int) model.SubmissionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[questionID]; ok {
		return st
	}
	return model.SubmissionNone
}

// RecomputeUnlocked replaces the unlocked set with a fresh resolution over the
// full answer map. Old unlocks contributed by changed answers are dropped in the
// same step new ones are granted. It returns the new set and whether it changed.
func (s *Store) RecomputeUnlocked() (engine.Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := engine.Resolve(s.mode, s.answers, s.catalog)
	changed := !next.Equal(s.unlocked)
	s.unlocked = next
	return next.Clone(), changed
}

// Unlocked returns a copy of the unlocked set
func (s *Store) Unlocked() engine.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked.Clone()
}

// MarkUnanswered flags a question for the unanswered banner
func (s *Store) MarkUnanswered(questionID int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unanswered[questionID] = message
}

// ClearUnanswered removes a question from the unanswered banner
func (s *Store) ClearUnanswered(questionID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unanswered, questionID)
}

// Unanswered returns the flagged questions and their messages
func (s *Store) Unanswered() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.unanswered))
	for k, v := range s.unanswered {
		out[k] = v
	}
	return out
}

// MarkFinalized records that the questionnaire was completed
func (s *Store) MarkFinalized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = true
}

// Finalized reports whether the questionnaire was completed
func (s *Store) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized
}

// Progress runs the progress aggregation over the current state
func (s *Store) Progress() model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.Counts(s.answers, s.unlocked, s.catalog)
}

// Snapshot copies the whole state under one lock
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[int]model.SubmissionState, len(s.states))
	for k, v := range s.states {
		states[k] = v
	}
	unanswered := make(map[int]string, len(s.unanswered))
	for k, v := range s.unanswered {
		unanswered[k] = v
	}
	return Snapshot{
		Answers:    copyAnswers(s.answers),
		States:     states,
		Unlocked:   s.unlocked.Clone(),
		Unanswered: unanswered,
		Finalized:  s.finalized,
	}
}

func copyAnswers(in map[int]model.Answer) map[int]model.Answer {
	out := make(map[int]model.Answer, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
