// Package serialize reads and writes binary snapshots of a plank world: its
// settings, bodies with their fixtures, and joints.
//
// Joints are written in two passes. Joints that only reference bodies come
// first, then the gear and constant volume joints, which also reference
// joints by their index in the snapshot. Decoding creates them in the same
// order so that every index resolves to an already created joint.
package serialize

import (
	"fmt"
	"io"

	"github.com/akmonengine/plank"
	"github.com/akmonengine/plank/shape"
	"github.com/pkg/errors"
)

const (
	worldAllowSleeping uint8 = 1 << iota
	worldWarmStarting
	worldContinuousPhysics
	worldSubStepping
	worldAutoClearForces
	worldBounds
)

const (
	bodyBullet uint8 = 1 << iota
	bodyAllowSleep
	bodyAwake
	bodyActive
	bodyFixedRotation
)

// An Encoder writes world snapshots to an output stream.
type Encoder struct {
	w io.Writer

	// Unsupported decides what happens to the objects that cannot be written.
	// Left nil, encoding stops at the first one.
	Unsupported UnsupportedListener
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes a snapshot of the world to w.
func Encode(w io.Writer, world *plank.World) error {
	return NewEncoder(w).Encode(world)
}

// Encode writes a snapshot of the world. The world must not be stepping.
func (e *Encoder) Encode(world *plank.World) error {
	if world.IsLocked() {
		return errors.Wrap(plank.ErrWorldLocked, "serialize: encode")
	}

	out := &writer{}
	out.buf = append(out.buf, magic[:]...)
	out.uint16(Version)

	e.writeWorld(out, world)

	bodyIndex, err := e.writeBodies(out, world.GetBodies())
	if err != nil {
		return err
	}
	if err := e.writeJoints(out, world.GetJoints(), bodyIndex); err != nil {
		return err
	}

	return out.flush(e.w)
}

func (e *Encoder) writeWorld(out *writer, world *plank.World) {
	out.vec2(world.GetGravity())

	var flags uint8
	if world.GetAllowSleeping() {
		flags |= worldAllowSleeping
	}
	if world.GetWarmStarting() {
		flags |= worldWarmStarting
	}
	if world.GetContinuousPhysics() {
		flags |= worldContinuousPhysics
	}
	if world.GetSubStepping() {
		flags |= worldSubStepping
	}
	if world.GetAutoClearForces() {
		flags |= worldAutoClearForces
	}
	bounds, hasBounds := world.GetBounds()
	if hasBounds {
		flags |= worldBounds
	}
	out.uint8(flags)

	if hasBounds {
		out.vec2(bounds.LowerBound)
		out.vec2(bounds.UpperBound)
	}
}

func (e *Encoder) writeBodies(out *writer, bodies []*plank.Body) (map[*plank.Body]int32, error) {
	var section writer
	bodyIndex := make(map[*plank.Body]int32, len(bodies))

	for _, b := range bodies {
		switch b.GetType() {
		case plank.StaticBody, plank.KinematicBody, plank.DynamicBody:
		default:
			if err := unsupported(e.Unsupported, KindBody, b.GetType().String()); err != nil {
				return nil, err
			}
			continue
		}

		err := section.record(uint8(b.GetType()), func(payload *writer) error {
			return e.writeBody(payload, b)
		})
		if err != nil {
			return nil, err
		}
		bodyIndex[b] = int32(len(bodyIndex))
	}

	out.uint32(uint32(len(bodyIndex)))
	out.buf = append(out.buf, section.buf...)
	return bodyIndex, nil
}

func (e *Encoder) writeBody(out *writer, b *plank.Body) error {
	out.vec2(b.GetPosition())
	out.float64(b.GetAngle())
	out.vec2(b.GetLinearVelocity())
	out.float64(b.GetAngularVelocity())
	out.float64(b.GetLinearDamping())
	out.float64(b.GetAngularDamping())
	out.float64(b.GetGravityScale())

	var flags uint8
	if b.IsBullet() {
		flags |= bodyBullet
	}
	if b.IsSleepingAllowed() {
		flags |= bodyAllowSleep
	}
	if b.IsAwake() {
		flags |= bodyAwake
	}
	if b.IsActive() {
		flags |= bodyActive
	}
	if b.IsFixedRotation() {
		flags |= bodyFixedRotation
	}
	out.uint8(flags)

	var fixtures writer
	count := 0
	for _, f := range b.GetFixtures() {
		written, err := e.writeFixture(&fixtures, f)
		if err != nil {
			return err
		}
		if written {
			count++
		}
	}
	out.uint32(uint32(count))
	out.buf = append(out.buf, fixtures.buf...)
	return nil
}

// writeFixture returns false when the fixture shape was skipped.
func (e *Encoder) writeFixture(out *writer, f *plank.Fixture) (bool, error) {
	s := f.GetShape()
	switch s.(type) {
	case *shape.Circle, *shape.Polygon:
	default:
		return false, unsupported(e.Unsupported, KindShape, fmt.Sprintf("%T", s))
	}

	out.float64(f.GetDensity())
	out.float64(f.GetFriction())
	out.float64(f.GetRestitution())
	out.bool(f.IsSensor())

	filter := f.GetFilterData()
	out.uint16(filter.CategoryBits)
	out.uint16(filter.MaskBits)
	out.uint16(uint16(filter.GroupIndex))

	err := out.record(uint8(s.GetType()), func(payload *writer) error {
		writeShape(payload, s)
		return nil
	})
	return err == nil, err
}

func writeShape(out *writer, s shape.Shape) {
	switch s := s.(type) {
	case *shape.Circle:
		out.vec2(s.P)
		out.float64(s.Radius)
	case *shape.Polygon:
		out.float64(s.Radius)
		out.vec2(s.Centroid)
		out.uint8(uint8(s.Count))
		for i := 0; i < s.Count; i++ {
			out.vec2(s.Vertices[i])
			out.vec2(s.Normals[i])
		}
	}
}

// isDependent reports whether the joint references other joints.
func isDependent(j plank.Joint) bool {
	switch j.GetType() {
	case plank.JointTypeGear, plank.JointTypeConstantVolume:
		return true
	default:
		return false
	}
}

func (e *Encoder) writeJoints(out *writer, joints []plank.Joint, bodyIndex map[*plank.Body]int32) error {
	var section writer
	jointIndex := make(map[plank.Joint]int32, len(joints))

	for _, dependent := range []bool{false, true} {
		for _, j := range joints {
			if isDependent(j) != dependent {
				continue
			}

			written, err := e.writeJoint(&section, j, bodyIndex, jointIndex)
			if err != nil {
				return err
			}
			if written {
				jointIndex[j] = int32(len(jointIndex))
			}
		}
	}

	out.uint32(uint32(len(jointIndex)))
	out.buf = append(out.buf, section.buf...)
	return nil
}

func (e *Encoder) writeJoint(out *writer, j plank.Joint, bodyIndex map[*plank.Body]int32, jointIndex map[plank.Joint]int32) (bool, error) {
	switch j.(type) {
	case *plank.RevoluteJoint, *plank.PrismaticJoint, *plank.DistanceJoint, *plank.PulleyJoint,
		*plank.MouseJoint, *plank.GearJoint, *plank.WheelJoint, *plank.WeldJoint,
		*plank.FrictionJoint, *plank.RopeJoint, *plank.ConstantVolumeJoint:
	default:
		return false, unsupported(e.Unsupported, KindJoint, j.GetType().String())
	}

	body := func(b *plank.Body) (int32, error) {
		index, ok := bodyIndex[b]
		if !ok {
			return 0, errors.Wrapf(ErrBadReference, "%s joint body was not written", j.GetType())
		}
		return index, nil
	}
	other := func(o plank.Joint) (int32, error) {
		index, ok := jointIndex[o]
		if !ok {
			return 0, errors.Wrapf(ErrBadReference, "%s joint references a %s joint that was not written", j.GetType(), o.GetType())
		}
		return index, nil
	}

	err := out.record(uint8(j.GetType()), func(p *writer) error {
		indexA, err := body(j.GetBodyA())
		if err != nil {
			return err
		}
		indexB, err := body(j.GetBodyB())
		if err != nil {
			return err
		}
		p.int32(indexA)
		p.int32(indexB)
		p.bool(j.GetCollideConnected())

		switch j := j.(type) {
		case *plank.RevoluteJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetReferenceAngle())
			p.bool(j.IsLimitEnabled())
			p.float64(j.GetLowerLimit())
			p.float64(j.GetUpperLimit())
			p.bool(j.IsMotorEnabled())
			p.float64(j.GetMotorSpeed())
			p.float64(j.GetMaxMotorTorque())
		case *plank.PrismaticJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.vec2(j.GetLocalAxisA())
			p.float64(j.GetReferenceAngle())
			p.bool(j.IsLimitEnabled())
			p.float64(j.GetLowerLimit())
			p.float64(j.GetUpperLimit())
			p.bool(j.IsMotorEnabled())
			p.float64(j.GetMotorSpeed())
			p.float64(j.GetMaxMotorForce())
		case *plank.DistanceJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetLength())
			p.float64(j.GetFrequency())
			p.float64(j.GetDampingRatio())
		case *plank.PulleyJoint:
			p.vec2(j.GetGroundAnchorA())
			p.vec2(j.GetGroundAnchorB())
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetLengthA())
			p.float64(j.GetLengthB())
			p.float64(j.GetRatio())
		case *plank.MouseJoint:
			p.vec2(j.GetTarget())
			p.float64(j.GetMaxForce())
			p.float64(j.GetFrequency())
			p.float64(j.GetDampingRatio())
		case *plank.GearJoint:
			index1, err := other(j.GetJoint1())
			if err != nil {
				return err
			}
			index2, err := other(j.GetJoint2())
			if err != nil {
				return err
			}
			p.int32(index1)
			p.int32(index2)
			p.float64(j.GetRatio())
		case *plank.WheelJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.vec2(j.GetLocalAxisA())
			p.bool(j.IsLimitEnabled())
			p.float64(j.GetLowerLimit())
			p.float64(j.GetUpperLimit())
			p.bool(j.IsMotorEnabled())
			p.float64(j.GetMotorSpeed())
			p.float64(j.GetMaxMotorTorque())
			p.float64(j.GetSpringFrequencyHz())
			p.float64(j.GetSpringDampingRatio())
		case *plank.WeldJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetReferenceAngle())
			p.float64(j.GetFrequency())
			p.float64(j.GetDampingRatio())
		case *plank.FrictionJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetMaxForce())
			p.float64(j.GetMaxTorque())
		case *plank.RopeJoint:
			p.vec2(j.GetLocalAnchorA())
			p.vec2(j.GetLocalAnchorB())
			p.float64(j.GetMaxLength())
		case *plank.ConstantVolumeJoint:
			bodies := j.GetBodies()
			p.uint32(uint32(len(bodies)))
			for _, b := range bodies {
				index, err := body(b)
				if err != nil {
					return err
				}
				p.int32(index)
			}
			for _, dj := range j.GetJoints() {
				index, err := other(dj)
				if err != nil {
					return err
				}
				p.int32(index)
			}
			p.float64(j.GetTargetVolume())
		}
		return nil
	})
	return err == nil, err
}
