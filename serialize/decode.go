package serialize

import (
	"bytes"
	"fmt"
	"io"

	"github.com/akmonengine/plank"
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/pkg/errors"
)

// A Decoder builds worlds from snapshots read from an input stream.
type Decoder struct {
	r io.Reader

	// Unsupported decides what happens to the records that cannot be read.
	// Left nil, decoding stops at the first one.
	Unsupported UnsupportedListener
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads a snapshot from r into a new world.
func Decode(r io.Reader) (*plank.World, error) {
	return NewDecoder(r).Decode()
}

// Decode reads the whole input and builds the world it describes.
func (d *Decoder) Decode() (*plank.World, error) {
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, errors.Wrap(err, "serialize: read snapshot")
	}
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, errors.WithStack(ErrBadHeader)
	}

	in := &reader{data: data, off: len(magic)}
	if version := in.uint16(); version != Version {
		return nil, errors.Wrapf(ErrBadHeader, "version %d, expected %d", version, Version)
	}

	world := d.readWorld(in)

	bodies, err := d.readBodies(in, world)
	if err != nil {
		return nil, err
	}
	if err := d.readJoints(in, world, bodies); err != nil {
		return nil, err
	}

	if in.err != nil {
		return nil, in.err
	}
	if in.off != len(in.data) {
		return nil, errors.Errorf("serialize: %d trailing bytes", len(in.data)-in.off)
	}
	return world, nil
}

func (d *Decoder) readWorld(in *reader) *plank.World {
	world := plank.NewWorld(in.vec2())

	flags := in.uint8()
	world.SetAllowSleeping(flags&worldAllowSleeping != 0)
	world.SetWarmStarting(flags&worldWarmStarting != 0)
	world.SetContinuousPhysics(flags&worldContinuousPhysics != 0)
	world.SetSubStepping(flags&worldSubStepping != 0)
	world.SetAutoClearForces(flags&worldAutoClearForces != 0)

	if flags&worldBounds != 0 {
		world.SetBounds(geom.AABB{LowerBound: in.vec2(), UpperBound: in.vec2()})
	}
	return world
}

// readBodies returns the bodies by snapshot index. Skipped bodies are nil.
func (d *Decoder) readBodies(in *reader, world *plank.World) ([]*plank.Body, error) {
	count := in.count(recordSize)
	bodies := make([]*plank.Body, 0, count)

	for i := 0; i < count; i++ {
		tag, payload := in.record()
		if in.err != nil {
			return nil, in.err
		}

		bodyType := plank.BodyType(tag)
		switch bodyType {
		case plank.StaticBody, plank.KinematicBody, plank.DynamicBody:
		default:
			if err := unsupported(d.Unsupported, KindBody, bodyType.String()); err != nil {
				return nil, err
			}
			bodies = append(bodies, nil)
			continue
		}

		b, err := d.readBody(payload, world, bodyType)
		if err != nil {
			return nil, errors.WithMessagef(err, "body %d", i)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func (d *Decoder) readBody(in *reader, world *plank.World, bodyType plank.BodyType) (*plank.Body, error) {
	def := plank.NewBodyDef()
	def.Type = bodyType
	def.Position = in.vec2()
	def.Angle = in.float64()
	def.LinearVelocity = in.vec2()
	def.AngularVelocity = in.float64()
	def.LinearDamping = in.float64()
	def.AngularDamping = in.float64()
	def.GravityScale = in.float64()

	flags := in.uint8()
	def.Bullet = flags&bodyBullet != 0
	def.AllowSleep = flags&bodyAllowSleep != 0
	def.Awake = flags&bodyAwake != 0
	def.Active = flags&bodyActive != 0
	def.FixedRotation = flags&bodyFixedRotation != 0
	if in.err != nil {
		return nil, in.err
	}

	b, err := world.CreateBody(&def)
	if err != nil {
		return nil, err
	}

	count := in.count(recordSize)
	for i := 0; i < count; i++ {
		fd := plank.NewFixtureDef()
		fd.Density = in.float64()
		fd.Friction = in.float64()
		fd.Restitution = in.float64()
		fd.IsSensor = in.bool()
		fd.Filter = plank.Filter{
			CategoryBits: in.uint16(),
			MaskBits:     in.uint16(),
			GroupIndex:   int16(in.uint16()),
		}

		tag, payload := in.record()
		if in.err != nil {
			return nil, in.err
		}
		s, err := d.readShape(payload, shape.Type(tag))
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		fd.Shape = s

		if _, err := b.CreateFixture(&fd); err != nil {
			return nil, err
		}
	}
	return b, in.err
}

// readShape returns nil when the shape was skipped.
func (d *Decoder) readShape(in *reader, shapeType shape.Type) (shape.Shape, error) {
	switch shapeType {
	case shape.TypeCircle:
		c := &shape.Circle{P: in.vec2(), Radius: in.float64()}
		return c, in.err

	case shape.TypePolygon:
		p := shape.NewPolygon()
		p.Radius = in.float64()
		p.Centroid = in.vec2()
		p.Count = int(in.uint8())
		if p.Count < 3 || p.Count > geom.MaxPolygonVertices {
			return nil, errors.Errorf("serialize: polygon with %d vertices", p.Count)
		}
		for i := 0; i < p.Count; i++ {
			p.Vertices[i] = in.vec2()
			p.Normals[i] = in.vec2()
		}
		return p, in.err

	default:
		return nil, unsupported(d.Unsupported, KindShape, shapeType.String())
	}
}

// readJoints creates the joints in snapshot order. Skipped joints are kept
// as nil so that the indices of the following ones still resolve.
func (d *Decoder) readJoints(in *reader, world *plank.World, bodies []*plank.Body) error {
	count := in.count(recordSize)
	joints := make([]plank.Joint, 0, count)

	for i := 0; i < count; i++ {
		tag, payload := in.record()
		if in.err != nil {
			return in.err
		}

		def, err := d.readJointDef(payload, plank.JointType(tag), bodies, joints)
		if err != nil {
			return errors.WithMessagef(err, "joint %d", i)
		}
		if def == nil {
			joints = append(joints, nil)
			continue
		}

		j, err := world.CreateJoint(def)
		if err != nil {
			return errors.WithMessagef(err, "joint %d", i)
		}

		if cvj, ok := j.(*plank.ConstantVolumeJoint); ok {
			restoreTargetVolume(cvj, payload)
		}
		joints = append(joints, j)
	}
	return nil
}

// restoreTargetVolume applies the written target area, which differs from
// the current one once the joint has been inflated.
func restoreTargetVolume(j *plank.ConstantVolumeJoint, in *reader) {
	target := in.float64()
	if current := j.GetTargetVolume(); in.err == nil && current != 0 {
		j.Inflate(target / current)
	}
}

// readJointDef returns a nil definition when the joint was skipped.
func (d *Decoder) readJointDef(in *reader, jointType plank.JointType, bodies []*plank.Body, joints []plank.Joint) (plank.JointDef, error) {
	body := func(index int32) (*plank.Body, error) {
		if index < 0 || int(index) >= len(bodies) || bodies[index] == nil {
			return nil, errors.Wrapf(ErrBadReference, "%s joint references body %d", jointType, index)
		}
		return bodies[index], nil
	}
	other := func(index int32) (plank.Joint, error) {
		if index < 0 || int(index) >= len(joints) || joints[index] == nil {
			return nil, errors.Wrapf(ErrBadReference, "%s joint references joint %d", jointType, index)
		}
		return joints[index], nil
	}

	bodyA, errA := body(in.int32())
	bodyB, errB := body(in.int32())
	base := plank.BaseJointDef{BodyA: bodyA, BodyB: bodyB, CollideConnected: in.bool()}

	var def plank.JointDef
	switch jointType {
	case plank.JointTypeRevolute:
		def = &plank.RevoluteJointDef{
			BaseJointDef:   base,
			LocalAnchorA:   in.vec2(),
			LocalAnchorB:   in.vec2(),
			ReferenceAngle: in.float64(),
			EnableLimit:    in.bool(),
			LowerAngle:     in.float64(),
			UpperAngle:     in.float64(),
			EnableMotor:    in.bool(),
			MotorSpeed:     in.float64(),
			MaxMotorTorque: in.float64(),
		}
	case plank.JointTypePrismatic:
		def = &plank.PrismaticJointDef{
			BaseJointDef:     base,
			LocalAnchorA:     in.vec2(),
			LocalAnchorB:     in.vec2(),
			LocalAxisA:       in.vec2(),
			ReferenceAngle:   in.float64(),
			EnableLimit:      in.bool(),
			LowerTranslation: in.float64(),
			UpperTranslation: in.float64(),
			EnableMotor:      in.bool(),
			MotorSpeed:       in.float64(),
			MaxMotorForce:    in.float64(),
		}
	case plank.JointTypeDistance:
		def = &plank.DistanceJointDef{
			BaseJointDef: base,
			LocalAnchorA: in.vec2(),
			LocalAnchorB: in.vec2(),
			Length:       in.float64(),
			FrequencyHz:  in.float64(),
			DampingRatio: in.float64(),
		}
	case plank.JointTypePulley:
		def = &plank.PulleyJointDef{
			BaseJointDef:  base,
			GroundAnchorA: in.vec2(),
			GroundAnchorB: in.vec2(),
			LocalAnchorA:  in.vec2(),
			LocalAnchorB:  in.vec2(),
			LengthA:       in.float64(),
			LengthB:       in.float64(),
			Ratio:         in.float64(),
		}
	case plank.JointTypeMouse:
		def = &plank.MouseJointDef{
			BaseJointDef: base,
			Target:       in.vec2(),
			MaxForce:     in.float64(),
			FrequencyHz:  in.float64(),
			DampingRatio: in.float64(),
		}
	case plank.JointTypeGear:
		joint1, err1 := other(in.int32())
		joint2, err2 := other(in.int32())
		if err := errorsFirst(err1, err2); err != nil {
			return nil, err
		}
		def = &plank.GearJointDef{BaseJointDef: base, Joint1: joint1, Joint2: joint2, Ratio: in.float64()}
	case plank.JointTypeWheel:
		def = &plank.WheelJointDef{
			BaseJointDef:     base,
			LocalAnchorA:     in.vec2(),
			LocalAnchorB:     in.vec2(),
			LocalAxisA:       in.vec2(),
			EnableLimit:      in.bool(),
			LowerTranslation: in.float64(),
			UpperTranslation: in.float64(),
			EnableMotor:      in.bool(),
			MotorSpeed:       in.float64(),
			MaxMotorTorque:   in.float64(),
			FrequencyHz:      in.float64(),
			DampingRatio:     in.float64(),
		}
	case plank.JointTypeWeld:
		def = &plank.WeldJointDef{
			BaseJointDef:   base,
			LocalAnchorA:   in.vec2(),
			LocalAnchorB:   in.vec2(),
			ReferenceAngle: in.float64(),
			FrequencyHz:    in.float64(),
			DampingRatio:   in.float64(),
		}
	case plank.JointTypeFriction:
		def = &plank.FrictionJointDef{
			BaseJointDef: base,
			LocalAnchorA: in.vec2(),
			LocalAnchorB: in.vec2(),
			MaxForce:     in.float64(),
			MaxTorque:    in.float64(),
		}
	case plank.JointTypeRope:
		def = &plank.RopeJointDef{
			BaseJointDef: base,
			LocalAnchorA: in.vec2(),
			LocalAnchorB: in.vec2(),
			MaxLength:    in.float64(),
		}
	case plank.JointTypeConstantVolume:
		cvj, err := readConstantVolume(in, base, body, other)
		if err != nil {
			return nil, err
		}
		def = cvj
	default:
		return nil, unsupported(d.Unsupported, KindJoint, fmt.Sprintf("%s(%d)", jointType, uint8(jointType)))
	}

	if err := errorsFirst(errA, errB, in.err); err != nil {
		return nil, err
	}
	return def, nil
}

func readConstantVolume(in *reader, base plank.BaseJointDef, body func(int32) (*plank.Body, error), other func(int32) (plank.Joint, error)) (*plank.ConstantVolumeJointDef, error) {
	def := &plank.ConstantVolumeJointDef{BaseJointDef: base}

	n := in.count(8)
	for i := 0; i < n; i++ {
		b, err := body(in.int32())
		if err != nil {
			return nil, err
		}
		def.AddBody(b)
	}
	for i := 0; i < n; i++ {
		j, err := other(in.int32())
		if err != nil {
			return nil, err
		}
		dj, ok := j.(*plank.DistanceJoint)
		if !ok {
			return nil, errors.Wrapf(ErrBadReference, "constant-volume joint edge %d is a %s joint", i, j.GetType())
		}
		def.Joints = append(def.Joints, dj)
	}
	return def, in.err
}

func errorsFirst(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
