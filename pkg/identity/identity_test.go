package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic_Idempotent(t *testing.T) {
	g := Deterministic()
	a := g.IDOf(Patient, "PAT-001", "1.2.3")
	b := g.IDOf(Patient, "PAT-001", "1.2.3")
	assert.Equal(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestDeterministic_DistinctInputs(t *testing.T) {
	g := Deterministic()
	assert.NotEqual(t, g.IDOf(Patient, "PAT-001", "1.2.3"), g.IDOf(Patient, "PAT-002", "1.2.3"))
	// the role is part of the name
	assert.NotEqual(t, g.IDOf(Patient, "1.2.3"), g.IDOf(ImagingStudy, "1.2.3"))
	// the separator keeps input boundaries
	assert.NotEqual(t, g.IDOf(Device, "ab", "c"), g.IDOf(Device, "a", "bc"))
}

func TestDeterministic_SeparatorInValue(t *testing.T) {
	g := Deterministic()
	// patient ids and issuers may legally contain the separator
	assert.NotEqual(t, g.IDOf(Patient, "A|B", "C"), g.IDOf(Patient, "A", "B|C"))
	assert.NotEqual(t, g.IDOf(Patient, "A|", "B"), g.IDOf(Patient, "A", "|B"))
	assert.NotEqual(t, g.ID(Patient, opt.Of("0:"), opt.Unset()), g.ID(Patient, opt.Unset(), opt.Of("0:")))
	assert.NotEqual(t, g.ID(Patient, opt.Unset()), g.IDOf(Patient, "0:"))
}

func TestCanonical_Normalization(t *testing.T) {
	assert.Equal(t, Canonical(Device, opt.Unset(), opt.Of("1.2")), Canonical(Device, opt.Empty(), opt.Of("1.2")))
	assert.Equal(t, Canonical(Device, opt.Of("  ACME "), opt.Of("1.2")), Canonical(Device, opt.Of("ACME"), opt.Of("1.2")))
	assert.Equal(t, Canonical(Device, opt.Of(""), opt.Of("1.2")), Canonical(Device, opt.Unset(), opt.Of("1.2")))
	assert.Equal(t, "device|4:ACME|3:1.2", Canonical(Device, opt.Of("ACME"), opt.Of("1.2")))
	assert.Equal(t, "device|0:|3:1.2", Canonical(Device, opt.Unset(), opt.Of("1.2")))
}

func TestRandom(t *testing.T) {
	g := New(false)
	assert.False(t, g.IsDeterministic())
	assert.NotEqual(t, g.IDOf(Composition, "1.2.3"), g.IDOf(Composition, "1.2.3"))
}

func TestURN(t *testing.T) {
	g := Deterministic()
	urn := g.URNOf(Composition, "1.2.3")
	assert.Equal(t, "urn:uuid:"+g.IDOf(Composition, "1.2.3"), urn)
	assert.Equal(t, g.IDOf(Composition, "1.2.3"), FromURN(urn))
}
