package config

import (
	"testing"

	"rf2boot/internal/engine/rf2"

	"github.com/stretchr/testify/assert"
)

func TestPresets(t *testing.T) {
	light := Light()
	assert.True(t, light.Concepts())
	assert.True(t, light.Descriptions())
	assert.True(t, light.InferredAttributeMap())
	assert.False(t, light.StatedRelationships())
	assert.False(t, light.InactiveConcepts())
	assert.False(t, light.AllRefsets())
	assert.Equal(t, []string{rf2.GBLanguageRefset, rf2.USLanguageRefset}, light.RefsetIDs())

	complete := Complete()
	assert.True(t, complete.StatedRelationships())
	assert.True(t, complete.InactiveConcepts())
	assert.True(t, complete.InactiveIdentifiers())
	assert.True(t, complete.InactiveRefsetMembers())
	assert.True(t, complete.AllRefsets())
}

func TestProfile_WithDoesNotMutate(t *testing.T) {
	base := Light()
	derived := base.With(
		WithRefsets("723264001"),
		WithoutRefsets(rf2.GBLanguageRefset),
		WithModules("900000000000207008"),
		WithModuleEffectiveTimes(map[string]int{"900000000000207008": 20170131}),
		WithEffectiveFilter(true),
	)

	assert.False(t, base.IsRefset("723264001"))
	assert.True(t, base.IsRefset(rf2.GBLanguageRefset))
	assert.Empty(t, base.ModuleIDs())
	assert.False(t, base.EffectiveFilter())

	assert.True(t, derived.IsRefset("723264001"))
	assert.False(t, derived.IsRefset(rf2.GBLanguageRefset))
	assert.True(t, derived.HasModule("900000000000207008"))
	cutoff, ok := derived.ModuleEffectiveTime("900000000000207008")
	assert.True(t, ok)
	assert.Equal(t, 20170131, cutoff)
	assert.True(t, derived.EffectiveFilter())
}

func TestProfile_AccessorsReturnCopies(t *testing.T) {
	times := map[string]int{"a": 1}
	p := Profile{}.With(WithModuleEffectiveTimes(times), WithRefsetFilenamePatterns("der2_*", "der2_*"))
	times["a"] = 2
	p.ModuleEffectiveTimes()["a"] = 3
	p.RefsetFilenamePatterns()[0] = "changed"

	v, _ := p.ModuleEffectiveTime("a")
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"der2_*"}, p.RefsetFilenamePatterns())
}

func TestProfile_Requirements(t *testing.T) {
	assert.Equal(t, rf2.Requirements{Concepts: true, Relationships: true, Descriptions: true}, Light().Requirements())
	assert.Equal(t, rf2.Requirements{}, Light().With(WithJustRefsets(true)).Requirements())
	assert.Equal(t, rf2.Requirements{Concepts: true, Relationships: true},
		Light().With(WithDescriptions(false)).Requirements())
}

func TestProfile_LoadsRefsets(t *testing.T) {
	assert.True(t, Light().LoadsRefsets())
	assert.False(t, Light().With(WithoutAnyRefsets()).LoadsRefsets())
	assert.True(t, Light().With(WithoutAnyRefsets(), WithRefsetFilenamePatterns("*OWL*")).LoadsRefsets())
}
