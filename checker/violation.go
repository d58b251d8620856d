package checker

import "fmt"

// Kind identifies the invariant a Violation breaks.
type Kind int

// All violation kinds.
const (
	LPNMismatch Kind = iota
	NonSequentialWrite
	Overwrite
	OutOfBounds
	BadBlockAccess
	AddressRange
	Assertion
	BufferHandshake
)

func (k Kind) String() string {
	switch k {
	case LPNMismatch:
		return "LPNMismatch"
	case NonSequentialWrite:
		return "NonSequentialWrite"
	case Overwrite:
		return "Overwrite"
	case OutOfBounds:
		return "OutOfBounds"
	case BadBlockAccess:
		return "BadBlockAccess"
	case AddressRange:
		return "AddressRange"
	case Assertion:
		return "Assertion"
	case BufferHandshake:
		return "BufferHandshake"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Violation is a bug in the code under test. It is raised with panic and is
// never returned as an ordinary error.
type Violation struct {
	Kind Kind
	Msg  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Msg)
}

// AsViolation extracts a Violation from a recovered panic value.
func AsViolation(r any) (*Violation, bool) {
	v, ok := r.(*Violation)
	return v, ok
}
