package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, map[string]string{"a": "1", "b": "2"}))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Set(ctx, map[string]string{"a": "3"}))
	v, _ = m.Get(ctx, "a")
	assert.Equal(t, "3", v)

	require.NoError(t, m.Delete(ctx, "a", "b", "missing"))
	assert.Equal(t, 0, m.Len())
}
