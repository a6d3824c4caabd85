package card_review

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
)

// MockCardReviewService is a function-field CardReviewService for handler tests.
type MockCardReviewService struct {
	GetNextItemFunc func(ctx context.Context, userID uuid.UUID) (*domain.Item, error)
	SubmitGradeFunc func(ctx context.Context, userID, itemID uuid.UUID, answer ReviewAnswer) (*domain.Item, error)
}

var _ CardReviewService = (*MockCardReviewService)(nil)

// GetNextItem calls GetNextItemFunc when set.
func (m *MockCardReviewService) GetNextItem(ctx context.Context, userID uuid.UUID) (*domain.Item, error) {
	if m.GetNextItemFunc != nil {
		return m.GetNextItemFunc(ctx, userID)
	}
	return nil, domain.ErrNoEligibleItems
}

// SubmitGrade calls SubmitGradeFunc when set.
func (m *MockCardReviewService) SubmitGrade(
	ctx context.Context,
	userID, itemID uuid.UUID,
	answer ReviewAnswer,
) (*domain.Item, error) {
	if m.SubmitGradeFunc != nil {
		return m.SubmitGradeFunc(ctx, userID, itemID, answer)
	}
	return nil, nil
}
