package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownType(t *testing.T) {
	err := UnknownType("bpmn:Foo")

	assert.Equal(t, CodeUnknownType, err.Code)
	assert.Contains(t, err.Error(), "Unknown activity type bpmn:Foo")
	assert.Contains(t, err.Error(), "type=bpmn:Foo")
	assert.NotEmpty(t, err.StackTrace)
}

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, CodeStoreFailed, "save"))
		assert.Nil(t, Wrapf(nil, CodeStoreFailed, "save %s", "x"))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := Wrapf(cause, CodeStoreFailed, "save %s", "snap-1")

		require.NotNil(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "[E301] save snap-1: disk full", err.Error())
	})
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", SnapshotNotFound("file", "abc"))

	assert.True(t, IsCode(err, CodeSnapshotNotFound))
	assert.False(t, IsCode(err, CodeUnknownType))
	assert.Equal(t, CodeSnapshotNotFound, GetCode(err))
	assert.Equal(t, CodeUnknown, GetCode(errors.New("plain")))
	assert.True(t, errors.Is(err, New(CodeSnapshotNotFound, "")))
}

func TestErrorContextIsSorted(t *testing.T) {
	err := New(CodeExportFailed, "export").
		WithContext("format", "xlsx").
		WithContext("entities", 3)

	assert.Equal(t, "[E303] export (entities=3, format=xlsx)", err.Error())
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.False(t, m.HasErrors())
	assert.NoError(t, m.Combined())

	first := errors.New("first")
	m.Add(first)
	m.Add(nil)
	assert.Equal(t, first, m.Combined())

	m.Add(errors.New("second"))
	combined := m.Combined()
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "2 errors occurred")
	assert.Contains(t, combined.Error(), "2. second")
	assert.ErrorIs(t, combined, first)

	m.Add(SnapshotNotFound("file", "gone"))
	assert.True(t, IsCode(m.Combined(), CodeSnapshotNotFound))
}
