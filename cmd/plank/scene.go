package main

import (
	"github.com/akmonengine/plank"
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// sceneBuilder fills an empty world. size scales the number of bodies.
type sceneBuilder func(w *plank.World, size int) error

var scenes = map[string]sceneBuilder{
	"box":     boxScene,
	"pyramid": pyramidScene,
	"bridge":  bridgeScene,
}

// createGround adds the 100x20 static ground whose top is at y=0, and bounds
// the world around it.
func createGround(w *plank.World) (*plank.Body, error) {
	def := plank.NewBodyDef()
	def.Position = mgl64.Vec2{0, -10}
	ground, err := w.CreateBody(&def)
	if err != nil {
		return nil, err
	}
	if _, err := ground.CreateFixtureFromShape(shape.NewBox(50, 10), 0); err != nil {
		return nil, err
	}

	w.SetBounds(geom.AABB{LowerBound: mgl64.Vec2{-100, -50}, UpperBound: mgl64.Vec2{100, 200}})
	return ground, nil
}

func createBox(w *plank.World, position mgl64.Vec2, hx, hy float64) (*plank.Body, error) {
	def := plank.NewBodyDef()
	def.Type = plank.DynamicBody
	def.Position = position
	b, err := w.CreateBody(&def)
	if err != nil {
		return nil, err
	}

	fd := plank.NewFixtureDef()
	fd.Shape = shape.NewBox(hx, hy)
	fd.Density = 1.0
	fd.Friction = 0.3
	if _, err := b.CreateFixture(&fd); err != nil {
		return nil, err
	}
	return b, nil
}

// boxScene drops a column of unit boxes, the first one from y=10.
func boxScene(w *plank.World, size int) error {
	if _, err := createGround(w); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if _, err := createBox(w, mgl64.Vec2{0, 10 + 1.5*float64(i)}, 0.5, 0.5); err != nil {
			return err
		}
	}
	return nil
}

// pyramidScene stacks size rows of boxes.
func pyramidScene(w *plank.World, size int) error {
	if _, err := createGround(w); err != nil {
		return err
	}

	const half = 0.5
	x := mgl64.Vec2{-7.0, 0.75}
	deltaX := mgl64.Vec2{0.5625, 1.25}
	deltaY := mgl64.Vec2{1.125, 0.0}

	for i := 0; i < size; i++ {
		y := x
		for j := i; j < size; j++ {
			if _, err := createBox(w, y, half, half); err != nil {
				return err
			}
			y = y.Add(deltaY)
		}
		x = x.Add(deltaX)
	}
	return nil
}

// bridgeScene hangs a chain of size planks between two posts.
func bridgeScene(w *plank.World, size int) error {
	ground, err := createGround(w)
	if err != nil {
		return err
	}

	const y = 5.0
	start := -float64(size) / 2
	prev := ground
	for i := 0; i < size; i++ {
		segment, err := createBox(w, mgl64.Vec2{start + 0.5 + float64(i), y}, 0.5, 0.125)
		if err != nil {
			return err
		}

		def := &plank.RevoluteJointDef{}
		def.Initialize(prev, segment, mgl64.Vec2{start + float64(i), y})
		if _, err := w.CreateJoint(def); err != nil {
			return err
		}
		prev = segment
	}

	def := &plank.RevoluteJointDef{}
	def.Initialize(prev, ground, mgl64.Vec2{start + float64(size), y})
	_, err = w.CreateJoint(def)
	return err
}
