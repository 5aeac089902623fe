package serialize

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrBadReference is returned when a joint references a body or a joint
	// that is not part of the snapshot.
	ErrBadReference = errors.New("serialize: bad reference")
	// ErrBadHeader is returned when the input is not a world snapshot.
	ErrBadHeader = errors.New("serialize: not a world snapshot")
)

// ObjectKind classifies the objects of a snapshot.
type ObjectKind uint8

const (
	KindWorld ObjectKind = iota
	KindBody
	KindFixture
	KindShape
	KindJoint
)

func (k ObjectKind) String() string {
	switch k {
	case KindWorld:
		return "world"
	case KindBody:
		return "body"
	case KindFixture:
		return "fixture"
	case KindShape:
		return "shape"
	case KindJoint:
		return "joint"
	default:
		return fmt.Sprintf("ObjectKind(%d)", uint8(k))
	}
}

// UnsupportedObjectError reports an object the codec cannot encode or decode.
type UnsupportedObjectError struct {
	Kind ObjectKind
	Type string
}

func (e *UnsupportedObjectError) Error() string {
	return fmt.Sprintf("serialize: unsupported %s type %s", e.Kind, e.Type)
}

// UnsupportedListener is consulted for each unsupported object. Returning true
// skips the object, false aborts with the error.
type UnsupportedListener func(err *UnsupportedObjectError) bool

// unsupported returns nil when the listener chose to skip the object.
func unsupported(listener UnsupportedListener, kind ObjectKind, typ string) error {
	err := &UnsupportedObjectError{Kind: kind, Type: typ}
	if listener != nil && listener(err) {
		return nil
	}
	return errors.WithStack(err)
}
