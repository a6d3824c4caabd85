// Package card_review grades single items outside of a review session.
package card_review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
)

// ReviewAnswer represents a user's grade for one item.
type ReviewAnswer struct {
	Grade domain.Grade `json:"grade"`
}

// CardReviewService provides one-at-a-time review of due items.
type CardReviewService interface {
	// GetNextItem returns the single item the user should review next, using
	// the same eligibility rules and ordering as session selection.
	//
	// Returns domain.ErrNoEligibleItems when nothing is due.
	GetNextItem(ctx context.Context, userID uuid.UUID) (*domain.Item, error)

	// SubmitGrade applies the memory model to the item and appends a grade
	// event, in one transaction.
	//
	// Error Handling:
	//   - domain.ErrInvalidGrade for an unknown grade, before any read
	//   - domain.ErrItemNotFound when the item does not exist
	//   - domain.ErrItemNotOwned when the item belongs to another user
	SubmitGrade(ctx context.Context, userID, itemID uuid.UUID, answer ReviewAnswer) (*domain.Item, error)
}

// ServiceError wraps unexpected errors from the review service with the
// operation that failed. Domain errors are returned unwrapped.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_next_item", "submit_grade")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewSubmitGradeError returns a new ServiceError for the submit_grade operation.
func NewSubmitGradeError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "submit_grade", Message: message, Err: err}
}

// NewGetNextItemError returns a new ServiceError for the get_next_item operation.
func NewGetNextItemError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "get_next_item", Message: message, Err: err}
}
