package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/zeusync/sentry/internal/core/geom"
)

type stubEntity struct {
	id    EntityID
	alive bool
}

func (s stubEntity) ID() EntityID           { return s.id }
func (s stubEntity) Name() string           { return "stub" }
func (s stubEntity) Kind() Kind             { return KindPawn }
func (s stubEntity) Position() mgl64.Vec3   { return mgl64.Vec3{} }
func (s stubEntity) Rotation() geom.Rotator { return geom.Rotator{} }
func (s stubEntity) Alive() bool            { return s.alive }

type stubRegistry map[EntityID]Entity

func (r stubRegistry) Lookup(id EntityID) (Entity, bool) {
	e, ok := r[id]
	return e, ok
}

func TestResolve(t *testing.T) {
	reg := stubRegistry{
		1: stubEntity{id: 1, alive: true},
		2: stubEntity{id: 2, alive: false},
	}

	e, ok := Resolve(reg, 1)
	assert.True(t, ok)
	assert.Equal(t, EntityID(1), e.ID())

	_, ok = Resolve(reg, 2)
	assert.False(t, ok, "dead entities do not resolve")

	_, ok = Resolve(reg, 3)
	assert.False(t, ok)

	_, ok = Resolve(reg, None)
	assert.False(t, ok)

	_, ok = Resolve(nil, 1)
	assert.False(t, ok)
}

func TestDeathFunc(t *testing.T) {
	called := 0
	var l DeathListener = DeathFunc(func() { called++ })
	l.OnDeath()
	assert.Equal(t, 1, called)
}
