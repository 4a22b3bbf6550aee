package types

import (
	"reflect"
)

// ObjectID identifies one live object, e.g. one timeline block among
// several sharing the same source node. It is derived from the
// object's address, so it is unique only for the object's lifetime
// and is meant for log correlation, not persistence.
type ObjectID uint64

type GetObjectIDer interface {
	GetObjectID() ObjectID
}

type Pointer[T any] interface {
	*T
}

// GetObjectID derives the ID of the object behind obj.
func GetObjectID[P Pointer[T], T any](obj P) ObjectID {
	if obj == nil {
		return ObjectID(0)
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer,
		reflect.Chan,
		reflect.Func,
		reflect.Map,
		reflect.Slice,
		reflect.String,
		reflect.UnsafePointer:
		if v.IsNil() {
			return ObjectID(0)
		}
		ptr := uintptr(v.UnsafePointer())
		if uintptr(uint64(ptr)) != ptr {
			panic("pointer value does not fit into uint64")
		}
		return ObjectID(uint64(ptr))
	}
	panic("reaching this line was supposed to be impossible")
}
