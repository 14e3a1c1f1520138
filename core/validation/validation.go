// Package validation builds the struct validators used by the document,
// settings and analyzer configuration decoders.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// New returns a validator that reports fields by the name in their tagKey
// struct tag ("yaml", "json", "toml") and knows these tags:
//
//	module    a group:name module identity
//	version   a semantic version, "v" prefix optional
//	regexp    a regular expression that compiles
//	notblank  a string with non-space content
func New(tagKey string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get(tagKey), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	MustRegister(v, "module", func(fl validator.FieldLevel) bool {
		_, err := breaks.ParseGroupAndName(fl.Field().String())
		return err == nil
	})
	MustRegister(v, "version", func(fl validator.FieldLevel) bool {
		return breaks.Version(fl.Field().String()).Valid()
	})
	MustRegister(v, "regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	MustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// MustRegister adds a custom tag to v and panics if the tag cannot be
// registered. Validators are built at package init, so a failure is a
// programming error.
func MustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}
