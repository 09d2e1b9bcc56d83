// Package environment keeps the current states of the bodies involved in a
// propagation. Fixed bodies sit at constant inertial states; propagated bodies
// hold states relative to their central body and are resolved to inertial
// coordinates along the central-body chain on demand.
package environment

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrDuplicateBody = errors.New("environment: duplicate body")
	ErrUnknownBody   = errors.New("environment: unknown body")
	ErrCentralCycle  = errors.New("environment: central-body cycle")
)

// maxChainDepth bounds central-body resolution.
const maxChainDepth = 64

type Body struct {
	Name string
	// Central is the body Position and Velocity are relative to. Empty means
	// the inertial origin.
	Central                string
	Position               r3.Vec
	Velocity               r3.Vec
	Mass                   float64
	GravitationalParameter float64
	Radius                 float64
}

type Environment struct {
	bodies map[string]*Body
	names  []string
}

func New() *Environment {
	return &Environment{bodies: make(map[string]*Body)}
}

func (e *Environment) AddBody(b Body) error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownBody)
	}
	if _, ok := e.bodies[b.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBody, b.Name)
	}
	// A cycle is always closed by its last added member, so walking the
	// chain from the new body finds every one.
	depth := 0
	for name := b.Central; name != ""; depth++ {
		if name == b.Name {
			return fmt.Errorf("%w: %s", ErrCentralCycle, b.Name)
		}
		if depth >= maxChainDepth {
			return fmt.Errorf("%w: chain from %s deeper than %d", ErrCentralCycle, b.Name, maxChainDepth)
		}
		c, ok := e.bodies[name]
		if !ok {
			break
		}
		name = c.Central
	}
	body := b
	e.bodies[b.Name] = &body
	e.names = append(e.names, b.Name)
	return nil
}

func (e *Environment) Has(name string) bool {
	_, ok := e.bodies[name]
	return ok
}

func (e *Environment) Body(name string) (Body, error) {
	b, ok := e.bodies[name]
	if !ok {
		return Body{}, fmt.Errorf("%w: %s", ErrUnknownBody, name)
	}
	return *b, nil
}

func (e *Environment) Names() []string {
	return append([]string(nil), e.names...)
}

// SetState sets the state of a body relative to its central body.
func (e *Environment) SetState(name string, pos, vel r3.Vec) {
	if b, ok := e.bodies[name]; ok {
		b.Position = pos
		b.Velocity = vel
	}
}

func (e *Environment) SetMass(name string, m float64) {
	if b, ok := e.bodies[name]; ok {
		b.Mass = m
	}
}

func (e *Environment) SetGravitationalParameter(name string, mu float64) {
	if b, ok := e.bodies[name]; ok {
		b.GravitationalParameter = mu
	}
}

// Position returns the inertial position. Unknown bodies sit at the origin.
func (e *Environment) Position(name string) r3.Vec {
	var p r3.Vec
	for depth := 0; name != "" && depth < maxChainDepth; depth++ {
		b, ok := e.bodies[name]
		if !ok {
			break
		}
		p = r3.Add(p, b.Position)
		name = b.Central
	}
	return p
}

// Velocity returns the inertial velocity.
func (e *Environment) Velocity(name string) r3.Vec {
	var v r3.Vec
	for depth := 0; name != "" && depth < maxChainDepth; depth++ {
		b, ok := e.bodies[name]
		if !ok {
			break
		}
		v = r3.Add(v, b.Velocity)
		name = b.Central
	}
	return v
}

func (e *Environment) Mass(name string) float64 {
	if b, ok := e.bodies[name]; ok {
		return b.Mass
	}
	return 0
}

func (e *Environment) GravitationalParameter(name string) float64 {
	if b, ok := e.bodies[name]; ok {
		return b.GravitationalParameter
	}
	return 0
}

func (e *Environment) Radius(name string) float64 {
	if b, ok := e.bodies[name]; ok {
		return b.Radius
	}
	return 0
}
