package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidHandle, "handle 3 is not open")

	require.NotNil(t, err)
	assert.Equal(t, CodeInvalidHandle, err.Code())
	assert.Equal(t, "handle 3 is not open", err.Message())
	assert.Equal(t, ClassificationPermanent, err.Classification())
	assert.Nil(t, err.Context())
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "[INVALID_HANDLE] handle 3 is not open", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(CodeBufferTooSmall, "transfer of %d bytes exceeds dataport of %d", 8192, 4096)
	assert.Equal(t, "transfer of 8192 bytes exceeds dataport of 4096", err.Message())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("lfs: corrupted")
	err := Wrap(cause, CodeNotFound, "mount failed")

	require.NotNil(t, err)
	assert.Equal(t, CodeNotFound, err.Code())
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "[NOT_FOUND] mount failed: lfs: corrupted", err.Error())
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeGeneric, "nothing"))
	assert.Nil(t, Wrapf(nil, CodeGeneric, "nothing %d", 1))
}

func TestWrap_PreservesClassification(t *testing.T) {
	original := New(CodeUnavailable, "bucket unreachable")
	require.True(t, original.Classification().IsRetryable())

	wrapped := Wrap(original, CodeGeneric, "littlefs read failed")
	assert.True(t, wrapped.Classification().IsRetryable())
	assert.True(t, IsRetryable(wrapped))
}

func TestWithContext(t *testing.T) {
	err := New(CodeNotSupported, "flag combination not supported")
	err = WithContext(err, "backend", "fatfs")
	err = WithContext(err, "flags", 6)

	ctx := err.Context()
	assert.Equal(t, "fatfs", ctx["backend"])
	assert.Equal(t, 6, ctx["flags"])
	assert.Equal(t, CodeNotSupported, err.Code())

	// The returned map is a copy.
	ctx["backend"] = "spiffs"
	assert.Equal(t, "fatfs", err.Context()["backend"])
}

func TestWithContext_ForeignError(t *testing.T) {
	cause := stderrors.New("boom")
	err := WithContext(cause, "addr", 4096)

	assert.Equal(t, CodeGeneric, err.Code())
	assert.Equal(t, 4096, err.Context()["addr"])
	assert.True(t, Is(err, cause))
	assert.Nil(t, WithContext(nil, "k", "v"))
}

func TestWithContextMap_Overrides(t *testing.T) {
	err := WithContextMap(New(CodeAborted, "short read"), map[string]interface{}{"want": 10, "got": 4})
	err = WithContextMap(err, map[string]interface{}{"got": 5})

	assert.Equal(t, 10, err.Context()["want"])
	assert.Equal(t, 5, err.Context()["got"])
}

func TestWithClassification(t *testing.T) {
	err := WithClassification(New(CodeGeneric, "device busy"), ClassificationRetryable)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, CodeGeneric, err.Code())
	assert.Nil(t, WithClassification(nil, ClassificationRetryable))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "platform error",
			err:  New(CodeOutOfBounds, "no free handle"),
			want: CodeOutOfBounds,
		},
		{
			name: "outermost code wins",
			err:  Wrap(New(CodeAborted, "short write"), CodeGeneric, "write failed"),
			want: CodeGeneric,
		},
		{
			name: "standard error",
			err:  stderrors.New("plain"),
			want: CodeGeneric,
		},
		{
			name: "nil",
			err:  nil,
			want: CodeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(New(CodeNotFound, "x"), CodeNotFound))
	assert.False(t, HasCode(New(CodeNotFound, "x"), CodeGeneric))
	assert.False(t, HasCode(nil, CodeGeneric))
}

func TestDefaultClassification(t *testing.T) {
	assert.Equal(t, ClassificationRetryable, getDefaultClassification(CodeUnavailable))
	assert.Equal(t, ClassificationPermanent, getDefaultClassification(CodeBufferTooSmall))
	assert.Equal(t, ClassificationPermanent, getDefaultClassification(ErrorCode("SOMETHING_ELSE")))
	assert.Equal(t, ClassificationPermanent, GetClassification(stderrors.New("plain")))
	assert.Equal(t, ClassificationPermanent, GetClassification(nil))
}
