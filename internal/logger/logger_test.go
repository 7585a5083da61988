package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, 4)

	l.Info("Session: hidden")
	l.Warn("Session: shown", "user_id", "u1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "Session: shown")
	assert.Contains(t, buf.String(), "user_id=u1")
}

func TestLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, 0)
	fallback := NewWithWriter(&bytes.Buffer{}, 0)

	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := base.With("request_id", "r-1")
	ctx := IntoContext(context.Background(), scoped)
	FromContext(ctx, fallback).Info("request completed")

	assert.Contains(t, buf.String(), "request_id=r-1")
}
