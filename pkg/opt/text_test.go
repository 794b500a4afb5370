package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText_States(t *testing.T) {
	assert.Equal(t, StateUnset, Unset().State())
	assert.False(t, Unset().IsSet())

	e := Of("   ")
	assert.Equal(t, StateEmpty, e.State())
	assert.True(t, e.IsSet())
	assert.False(t, e.IsPresent())
	assert.Equal(t, "fallback", e.Or("fallback"))

	p := Of(" ACME ")
	assert.True(t, p.IsPresent())
	assert.Equal(t, "ACME", p.String())
	assert.Equal(t, "ACME", p.Or("fallback"))
	assert.Equal(t, "ACME", *p.Ptr())
	assert.Nil(t, e.Ptr())
}

func TestText_Placeholder(t *testing.T) {
	assert.True(t, Of("^^^^").IsPlaceholder())
	assert.True(t, Of("-").IsPlaceholder())
	assert.True(t, Of("--^--").IsPlaceholder())
	assert.True(t, Unset().IsPlaceholder())
	assert.False(t, Of("Smith^John").IsPlaceholder())
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StateUnset, StateEmpty, StatePresent} {
		assert.Equal(t, s, ParseState(s.String()))
	}
	assert.Equal(t, StateUnset, ParseState("bogus"))
}

func TestFromPtr(t *testing.T) {
	assert.Equal(t, Unset(), FromPtr(nil))
	v := "x"
	assert.Equal(t, Of("x"), FromPtr(&v))
}
