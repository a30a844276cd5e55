package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("close audit: %w", Conflict("审核已关闭"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindValidation))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestValidation_CarriesField(t *testing.T) {
	err := Validation("comment", "至少需要%d个字符", 10)

	assert.Equal(t, "comment", err.Field)
	assert.Equal(t, "至少需要10个字符", err.Error())
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("db down")
	err := &Error{Kind: KindNotFound, Message: "lookup", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "lookup: db down", err.Error())
}
