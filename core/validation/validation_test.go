package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Module  string `yaml:"module" validate:"module"`
	Version string `yaml:"afterVersion" validate:"version"`
	Pattern string `yaml:"pattern" validate:"regexp"`
	Reason  string `yaml:"reason" validate:"notblank"`
	Hidden  string `yaml:"-" validate:"required"`
}

func TestNew_Valid(t *testing.T) {
	v := New("yaml")
	err := v.Struct(sample{Module: "com.acme:foo", Version: "1.2.0", Pattern: "^internal/", Reason: "why", Hidden: "x"})
	assert.NoError(t, err)
}

func TestNew_ReportsTagNames(t *testing.T) {
	v := New("yaml")
	err := v.Struct(sample{Module: "foo", Version: "one", Pattern: "(", Reason: "  "})

	var fieldErrs validator.ValidationErrors
	require.True(t, errors.As(err, &fieldErrs))

	got := map[string]string{}
	for _, fe := range fieldErrs {
		got[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{
		"module":       "module",
		"afterVersion": "version",
		"pattern":      "regexp",
		"reason":       "notblank",
		"Hidden":       "required",
	}, got)
}

func TestMustRegister_PanicsOnEmptyTag(t *testing.T) {
	v := New("json")
	assert.Panics(t, func() {
		MustRegister(v, "", func(validator.FieldLevel) bool { return true })
	})
}
