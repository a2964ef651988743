package tarantula_test

import (
	"errors"
	"testing"

	"tarantula"

	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", "test")

	assert.Equal(t, tarantula.ENOTFOUND, tarantula.ErrorCode(err))
	assert.Equal(t, "run \"test\" not found", tarantula.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, tarantula.ErrorCode(nil))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, tarantula.EINTERNAL, tarantula.ErrorCode(errors.New("boom")))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, tarantula.ErrorMessage(nil))
}
