package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planForm struct {
	Title       string `validate:"notblank"`
	Description string `validate:"notblank"`
	Topics      string
}

func TestNotBlankRejectsWhitespace(t *testing.T) {
	v := NewValidator()

	err := v.Struct(planForm{Title: "   ", Description: "learn go"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"title": "notblank"}, FieldErrors(err))

	assert.NoError(t, v.Struct(planForm{Title: "Go", Description: "learn go"}))
}

func TestValidateReturnsHTTPError(t *testing.T) {
	v := NewValidator()
	err := v.Validate(planForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=400")
}
