package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("test")
	m.AddResponse("hello", "world")

	resp, err := m.Complete(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Text)

	resp, err = m.Complete(context.Background(), Request{Prompt: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: unknown", resp.Text)
}

func TestMockModelScriptTakesPrecedence(t *testing.T) {
	m := NewMockModel("test")
	m.AddResponse("hello", "canned")
	m.Enqueue(&Response{Text: "scripted"})

	resp, err := m.Complete(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "scripted", resp.Text)

	// script consumed, canned lookup takes over
	resp, err = m.Complete(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text)
}

func TestMockModelFail(t *testing.T) {
	m := NewMockModel("test")
	m.Fail(errors.New("down"))

	_, err := m.Complete(context.Background(), Request{Prompt: "hello"})
	require.Error(t, err)

	m.Fail(nil)
	_, err = m.Complete(context.Background(), Request{Prompt: "hello"})
	assert.NoError(t, err)
}

func TestMockModelRespectsContext(t *testing.T) {
	m := NewMockModel("test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, Request{Prompt: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockModelInfo(t *testing.T) {
	m := NewMockModel("test")

	info := m.Info()
	assert.Equal(t, "test", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}
