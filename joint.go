package plank

import (
	"fmt"

	"github.com/akmonengine/plank/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// JointType represents the kind of joint
type JointType int

const (
	JointTypeUnknown JointType = iota
	JointTypeRevolute
	JointTypePrismatic
	JointTypeDistance
	JointTypePulley
	JointTypeMouse
	JointTypeGear
	JointTypeWheel
	JointTypeWeld
	JointTypeFriction
	JointTypeRope
	JointTypeConstantVolume
)

func (t JointType) String() string {
	switch t {
	case JointTypeRevolute:
		return "revolute"
	case JointTypePrismatic:
		return "prismatic"
	case JointTypeDistance:
		return "distance"
	case JointTypePulley:
		return "pulley"
	case JointTypeMouse:
		return "mouse"
	case JointTypeGear:
		return "gear"
	case JointTypeWheel:
		return "wheel"
	case JointTypeWeld:
		return "weld"
	case JointTypeFriction:
		return "friction"
	case JointTypeRope:
		return "rope"
	case JointTypeConstantVolume:
		return "constant-volume"
	default:
		return "unknown"
	}
}

// LimitState is the state of a joint limit.
type LimitState int

const (
	LimitInactive LimitState = iota
	LimitAtLower
	LimitAtUpper
	LimitEqual
)

// Joint constrains two bodies together. Joints are solved along with the
// contacts of their island.
type Joint interface {
	constraint.Constraint

	GetType() JointType
	GetBodyA() *Body
	GetBodyB() *Body

	// GetAnchorA returns the anchor point on bodyA in world coordinates.
	GetAnchorA() mgl64.Vec2
	// GetAnchorB returns the anchor point on bodyB in world coordinates.
	GetAnchorB() mgl64.Vec2

	// GetReactionForce returns the reaction force on bodyB at the anchor, in Newtons.
	GetReactionForce(invDt float64) mgl64.Vec2
	// GetReactionTorque returns the reaction torque on bodyB, in N*m.
	GetReactionTorque(invDt float64) float64

	GetCollideConnected() bool
	// IsActive is false when either body is inactive.
	IsActive() bool

	GetUserData() any
	SetUserData(data any)

	base() *joint
}

// JointDef is implemented by every joint definition.
type JointDef interface {
	GetType() JointType
	base() *BaseJointDef
}

// BaseJointDef holds what every joint definition has in common.
type BaseJointDef struct {
	BodyA *Body
	BodyB *Body

	// CollideConnected lets the two bodies collide with each other.
	CollideConnected bool

	UserData any
}

func (def *BaseJointDef) base() *BaseJointDef {
	return def
}

// joint is embedded by every joint. The solver fields are loaded from the
// bodies at the start of each solve.
type joint struct {
	jointType JointType

	bodyA *Body
	bodyB *Body

	world *World

	islandFlag       bool
	collideConnected bool

	userData any

	indexA, indexB             int
	localCenterA, localCenterB mgl64.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
}

func newBaseJoint(jointType JointType, def *BaseJointDef) joint {
	return joint{
		jointType:        jointType,
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
		userData:         def.UserData,
	}
}

func (j *joint) base() *joint {
	return j
}

func (j *joint) GetType() JointType {
	return j.jointType
}

func (j *joint) GetBodyA() *Body {
	return j.bodyA
}

func (j *joint) GetBodyB() *Body {
	return j.bodyB
}

func (j *joint) GetCollideConnected() bool {
	return j.collideConnected
}

func (j *joint) IsActive() bool {
	return j.bodyA.IsActive() && j.bodyB.IsActive()
}

func (j *joint) GetUserData() any {
	return j.userData
}

func (j *joint) SetUserData(data any) {
	j.userData = data
}

// loadBodies caches the island indices and mass properties of both bodies.
func (j *joint) loadBodies() {
	j.indexA = j.bodyA.islandIndex
	j.indexB = j.bodyB.islandIndex
	j.localCenterA = j.bodyA.sweep.LocalCenter
	j.localCenterB = j.bodyB.sweep.LocalCenter
	j.invMassA = j.bodyA.invMass
	j.invMassB = j.bodyB.invMass
	j.invIA = j.bodyA.invI
	j.invIB = j.bodyB.invI
}

func (j *joint) wakeBodies() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}

// newJoint builds the joint described by def. The definition is validated
// against the world the joint is created in.
func newJoint(w *World, def JointDef) (Joint, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil joint definition", ErrInvalidDefinition)
	}

	b := def.base()
	if b.BodyA == nil || b.BodyB == nil {
		return nil, fmt.Errorf("%w: %s joint needs two bodies", ErrInvalidDefinition, def.GetType())
	}
	if b.BodyA == b.BodyB {
		return nil, fmt.Errorf("%w: %s joint connects a body to itself", ErrInvalidDefinition, def.GetType())
	}
	if b.BodyA.world != w || b.BodyB.world != w {
		return nil, fmt.Errorf("%w: %s joint bodies belong to another world", ErrDestroyed, def.GetType())
	}

	switch d := def.(type) {
	case *RevoluteJointDef:
		return newRevoluteJoint(d), nil
	case *PrismaticJointDef:
		return newPrismaticJoint(d), nil
	case *DistanceJointDef:
		return newDistanceJoint(d), nil
	case *PulleyJointDef:
		return newPulleyJoint(d)
	case *MouseJointDef:
		return newMouseJoint(d), nil
	case *GearJointDef:
		return newGearJoint(d)
	case *WheelJointDef:
		return newWheelJoint(d), nil
	case *WeldJointDef:
		return newWeldJoint(d), nil
	case *FrictionJointDef:
		return newFrictionJoint(d), nil
	case *RopeJointDef:
		return newRopeJoint(d), nil
	case *ConstantVolumeJointDef:
		return newConstantVolumeJoint(w, d)
	default:
		return nil, fmt.Errorf("%w: unknown joint type %s", ErrInvalidDefinition, def.GetType())
	}
}
