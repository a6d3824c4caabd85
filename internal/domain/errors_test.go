package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("grading: %w", Errorf(CodeItemAlreadyGraded, "item %d", 3))

	assert.ErrorIs(t, wrapped, ErrItemAlreadyGraded)
	assert.False(t, errors.Is(wrapped, ErrItemNotInSession))

	code, ok := CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeItemAlreadyGraded, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorCode_Kind(t *testing.T) {
	t.Parallel()

	tests := map[ErrorCode]ErrorKind{
		CodeInvalidGrade:      KindValidation,
		CodeNoEligibleItems:   KindState,
		CodeSessionIncomplete: KindState,
		CodeSessionNotOwned:   KindAuthorization,
		CodeSessionNotFound:   KindNotFound,
		CodeDeliveryFailed:    KindTransient,
	}
	for code, kind := range tests {
		assert.Equal(t, kind, code.Kind(), string(code))
	}
	assert.Equal(t, "StateError", ErrSessionExpired.Kind().String())
}

func TestParseGrade(t *testing.T) {
	t.Parallel()

	g, err := ParseGrade("good")
	assert.NoError(t, err)
	assert.Equal(t, GradeGood, g)
	assert.Equal(t, 3, g.Rating())

	_, err = ParseGrade("excellent")
	assert.ErrorIs(t, err, ErrInvalidGrade)

	assert.Equal(t, ResultFail, GradeAgain.Result())
	assert.Equal(t, ResultPass, GradeHard.Result())
}
