package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError_EntitySpecific(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrItemNotFound, ErrCollectionNotFound, ErrSessionNotFound, ErrProfileNotFound} {
		assert.True(t, IsNotFoundError(err), err.Error())
		assert.True(t, IsNotFoundError(fmt.Errorf("load: %w", err)), "wrapped %s", err)
	}
	assert.False(t, IsNotFoundError(ErrDuplicate))
	assert.False(t, IsNotFoundError(ErrInvalidEntity))
	assert.NotErrorIs(t, ErrItemNotFound, ErrSessionNotFound)
}
