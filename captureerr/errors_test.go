package captureerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindDeviceNotFound, "camera0 not found")
	assert.Equal(t, "device_not_found: camera0 not found", err.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("os handle gone")
	err := Wrap(KindIOError, "write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "os handle gone")
}

func TestIsKind(t *testing.T) {
	err := New(KindAlreadyStarted, "session already started")

	assert.True(t, Is(err, KindAlreadyStarted))
	assert.False(t, Is(err, KindAlreadyStopped))

	kind, ok := Of(err)
	require.True(t, ok)
	assert.Equal(t, KindAlreadyStarted, kind)
}

func TestOfNonCaptureError(t *testing.T) {
	_, ok := Of(errors.New("plain error"))
	assert.False(t, ok)
}
