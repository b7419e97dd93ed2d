package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFail_IsDistinguishable(t *testing.T) {
	err := Fail(Remote, "seek", fmt.Errorf("dial: %w", ErrUnavailable))

	var ce *ControlError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, Remote, ce.Source)
	assert.Equal(t, "seek", ce.Op)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "remote backend: seek")
}

func TestFail_NilAndAlreadyWrapped(t *testing.T) {
	assert.NoError(t, Fail(Local, "play", nil))

	inner := Fail(Local, "play", ErrClosed)
	outer := Fail(Remote, "skip", inner)
	assert.Same(t, inner, outer)
}
