package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"elements", "element_types", "meta-v2", "A1"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "has space", "dots.bad", "slash/bad", "urn:x"} {
		err := ValidateName(name)
		assert.Error(t, err, name)
		assert.True(t, errors.IsInvalid(err), name)
	}
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("http://example.com/alice#me"))
	assert.True(t, errors.IsInvalid(ValidateKey("")))
}
