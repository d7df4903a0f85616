package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_RegisterAndGet(t *testing.T) {
	r := NewHandlerRegistry()
	r.Register("send_email", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))

	h, ok := r.Get("send_email")
	require.True(t, ok)
	assert.NoError(t, h.Execute(context.Background(), &Job{}))
}

func TestHandlerRegistry_GetMissing(t *testing.T) {
	r := NewHandlerRegistry()
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestHandlerRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := NewHandlerRegistry()
	r.Register("send_email", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))

	assert.Panics(t, func() {
		r.Register("send_email", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))
	})
}

func TestHandlerRegistry_Names(t *testing.T) {
	r := NewHandlerRegistry()
	r.Register("a", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))
	r.Register("b", HandlerFunc(func(ctx context.Context, job *Job) error { return nil }))

	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}
