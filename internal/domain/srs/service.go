// Package srs implements the memory model: a pure function from an item's
// memory state and a grade to its next state and due date.
package srs

import (
	"time"

	"github.com/phrazzld/scry-sprint/internal/domain"
)

// Result is the outcome of applying a grade.
type Result struct {
	State     domain.MemoryState
	NextDueAt time.Time
}

// Service defines the interface for memory model operations
type Service interface {
	// ComputeNext returns the memory state and due date that follow grade at
	// the given time. It fails only for an unknown grade.
	ComputeNext(state domain.MemoryState, grade domain.Grade, at time.Time) (Result, error)

	// Retrievability estimates the recall probability of state at the given time.
	Retrievability(state domain.MemoryState, at time.Time) float64
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

var _ Service = (*defaultService)(nil)

// NewDefaultService creates a new memory model with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new memory model with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// ComputeNext implements the Service interface
func (s *defaultService) ComputeNext(
	state domain.MemoryState,
	grade domain.Grade,
	at time.Time,
) (Result, error) {
	if !grade.Valid() {
		return Result{}, domain.ErrInvalidGrade
	}

	next, due := calculateNext(state, grade, at, s.params)
	return Result{State: next, NextDueAt: due}, nil
}

// Retrievability implements the Service interface
func (s *defaultService) Retrievability(state domain.MemoryState, at time.Time) float64 {
	if state.State == domain.StateNew || state.LastReviewedAt == nil {
		return 0
	}
	elapsed := at.Sub(*state.LastReviewedAt).Hours() / 24
	if elapsed < 0 {
		elapsed = 0
	}
	return retrievability(elapsed, state.Stability)
}
