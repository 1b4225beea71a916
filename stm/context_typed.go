package stm

import (
	"math"
	"unsafe"

	"github.com/tinystm/tinystm/stm/field"
)

// Typed access operations, one pair per primitive width plus one for
// pointers, so values move through the log without boxing.
//
// Every AddReadAccess* call must be paired with an immediately preceding
// BeforeReadAccess on the same location; value is the program-visible value
// loaded between the two calls. The returned value is the one the
// transaction must use.

func (ctx *Context) AddReadAccessBool(obj unsafe.Pointer, value bool, offset uintptr) (bool, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeBool)
	if err != nil || !ok {
		return value, err
	}
	return bits != 0, nil
}

func (ctx *Context) AddReadAccessInt8(obj unsafe.Pointer, value int8, offset uintptr) (int8, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeInt8)
	if err != nil || !ok {
		return value, err
	}
	return int8(uint8(bits)), nil
}

func (ctx *Context) AddReadAccessInt16(obj unsafe.Pointer, value int16, offset uintptr) (int16, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeInt16)
	if err != nil || !ok {
		return value, err
	}
	return int16(uint16(bits)), nil
}

func (ctx *Context) AddReadAccessInt32(obj unsafe.Pointer, value int32, offset uintptr) (int32, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeInt32)
	if err != nil || !ok {
		return value, err
	}
	return int32(uint32(bits)), nil
}

func (ctx *Context) AddReadAccessInt64(obj unsafe.Pointer, value int64, offset uintptr) (int64, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeInt64)
	if err != nil || !ok {
		return value, err
	}
	return int64(bits), nil
}

func (ctx *Context) AddReadAccessUint8(obj unsafe.Pointer, value uint8, offset uintptr) (uint8, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeUint8)
	if err != nil || !ok {
		return value, err
	}
	return uint8(bits), nil
}

func (ctx *Context) AddReadAccessUint16(obj unsafe.Pointer, value uint16, offset uintptr) (uint16, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeUint16)
	if err != nil || !ok {
		return value, err
	}
	return uint16(bits), nil
}

func (ctx *Context) AddReadAccessUint32(obj unsafe.Pointer, value uint32, offset uintptr) (uint32, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeUint32)
	if err != nil || !ok {
		return value, err
	}
	return uint32(bits), nil
}

func (ctx *Context) AddReadAccessUint64(obj unsafe.Pointer, value uint64, offset uintptr) (uint64, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeUint64)
	if err != nil || !ok {
		return value, err
	}
	return bits, nil
}

func (ctx *Context) AddReadAccessFloat32(obj unsafe.Pointer, value float32, offset uintptr) (float32, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeFloat32)
	if err != nil || !ok {
		return value, err
	}
	return math.Float32frombits(uint32(bits)), nil
}

func (ctx *Context) AddReadAccessFloat64(obj unsafe.Pointer, value float64, offset uintptr) (float64, error) {
	bits, _, ok, err := ctx.addReadAccess(obj, offset, field.TypeFloat64)
	if err != nil || !ok {
		return value, err
	}
	return math.Float64frombits(bits), nil
}

func (ctx *Context) AddReadAccessPointer(obj unsafe.Pointer, value unsafe.Pointer, offset uintptr) (unsafe.Pointer, error) {
	_, ptr, ok, err := ctx.addReadAccess(obj, offset, field.TypePointer)
	if err != nil || !ok {
		return value, err
	}
	return ptr, nil
}

func (ctx *Context) AddWriteAccessBool(obj unsafe.Pointer, value bool, offset uintptr) error {
	var bits uint64
	if value {
		bits = 1
	}
	return ctx.addWriteAccess(obj, offset, field.TypeBool, bits, nil)
}

func (ctx *Context) AddWriteAccessInt8(obj unsafe.Pointer, value int8, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeInt8, uint64(uint8(value)), nil)
}

func (ctx *Context) AddWriteAccessInt16(obj unsafe.Pointer, value int16, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeInt16, uint64(uint16(value)), nil)
}

func (ctx *Context) AddWriteAccessInt32(obj unsafe.Pointer, value int32, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeInt32, uint64(uint32(value)), nil)
}

func (ctx *Context) AddWriteAccessInt64(obj unsafe.Pointer, value int64, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeInt64, uint64(value), nil)
}

func (ctx *Context) AddWriteAccessUint8(obj unsafe.Pointer, value uint8, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeUint8, uint64(value), nil)
}

func (ctx *Context) AddWriteAccessUint16(obj unsafe.Pointer, value uint16, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeUint16, uint64(value), nil)
}

func (ctx *Context) AddWriteAccessUint32(obj unsafe.Pointer, value uint32, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeUint32, uint64(value), nil)
}

func (ctx *Context) AddWriteAccessUint64(obj unsafe.Pointer, value uint64, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeUint64, value, nil)
}

func (ctx *Context) AddWriteAccessFloat32(obj unsafe.Pointer, value float32, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeFloat32, uint64(math.Float32bits(value)), nil)
}

func (ctx *Context) AddWriteAccessFloat64(obj unsafe.Pointer, value float64, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypeFloat64, math.Float64bits(value), nil)
}

func (ctx *Context) AddWriteAccessPointer(obj unsafe.Pointer, value unsafe.Pointer, offset uintptr) error {
	return ctx.addWriteAccess(obj, offset, field.TypePointer, 0, value)
}
