package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := Validation("missing productId or color metadata", nil)

	assert.Equal(t, "validation failed: missing productId or color metadata", err.Error())

	wrapped := Validation("product lookup", ErrProductNotFound)
	assert.ErrorIs(t, wrapped, ErrProductNotFound)
}

func TestProcessingError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Processing(StageUpload, cause)

	assert.Contains(t, err.Error(), "upload")
	assert.ErrorIs(t, err, cause)

	var pErr *ProcessingError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageUpload, pErr.Stage)
}

func TestQuarantineError(t *testing.T) {
	cause := errors.New("object not found")
	err := Quarantine("move", cause)

	assert.Contains(t, err.Error(), "move")
	assert.ErrorIs(t, err, cause)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", Validation("bad metadata", nil), "validation"},
		{"processing", Processing(StageGenerate, errors.New("decode")), "processing"},
		{"quarantine", Quarantine("move", errors.New("gone")), "quarantine"},
		{"plain error", errors.New("boom"), "internal"},
		{"wrapped processing", Wrap(Processing(StageDelete, errors.New("x")), "outer"), "processing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStage(t *testing.T) {
	assert.Equal(t, StageRecord, Stage(Processing(StageRecord, errors.New("x"))))
	assert.Equal(t, "", Stage(errors.New("plain")))
	assert.Equal(t, "", Stage(Validation("bad", nil)))
}

func TestWrap(t *testing.T) {
	cause := errors.New("inner")
	err := Wrap(cause, "context")

	assert.Equal(t, "context: inner", err.Error())
	assert.ErrorIs(t, err, cause)
}
