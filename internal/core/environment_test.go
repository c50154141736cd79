package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":   Production,
		" Production ": Production,
		"staging":      Staging,
		"testing":      Testing,
		"development":  Development,
		"":             Development,
		"prod":         Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEnvironment(in), "input %q", in)
	}
	assert.True(t, Production.IsProduction())
	assert.False(t, Staging.IsProduction())
}
