package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("event %q", "e1")
	wrapped := fmt.Errorf("get event: %w", err)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, `event "e1"`, err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := Wrap(KindConflict, cause, "commit")

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "commit: disk gone", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}
