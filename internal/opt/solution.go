package opt

import "reflect"

// Solution is the capability every candidate exposes to the engines.
// S is the concrete candidate type, usually a pointer to a struct embedding Evaluation.
type Solution[S any] interface {
	// Eval gives read/write access to the embedded evaluation.
	Eval() *Evaluation
	// Clone returns a deep copy of both the payload and the evaluation.
	Clone() S
}

// Copier is implemented by solutions that can overwrite themselves with another
// candidate's payload and evaluation without allocating. Engines use it to reuse
// snapshot buffers between iterations.
type Copier[S any] interface {
	CopyFrom(src S)
}

// Problem is the capability every problem instance exposes.
type Problem interface {
	ID() uint32
}

// CloneInto copies src into dst when dst supports in-place copies and returns dst.
// Otherwise it returns a fresh clone of src. dst must be a live candidate.
func CloneInto[S Solution[S]](dst, src S) S {
	if c, ok := any(dst).(Copier[S]); ok {
		c.CopyFrom(src)
		return dst
	}
	return src.Clone()
}

// IsNil reports whether v is nil or a nil pointer, map, slice, func or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
