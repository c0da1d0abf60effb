package safemath

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/ryanavella/wide"
)

// arithmetic errors
var (
	ErrOverflow     = errors.New("ErrOverflow")
	ErrUnderflow    = errors.New("ErrUnderflow")
	ErrDivideByZero = errors.New("ErrDivideByZero")
)

func CheckedAddU64(a uint64, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSubU64(a uint64, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

func CheckedMulU64(a uint64, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, ErrOverflow
	}
	return product, nil
}

func CheckedDivU64(a uint64, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

// CeilDivU64 divides a by b, rounding upwards.
func CeilDivU64(a uint64, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == 0 {
		return 0, nil
	}
	return (a-1)/b + 1, nil
}

func SaturatingAddU64(a uint64, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

func SaturatingSubU64(a uint64, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingMulU64(a uint64, b uint64) uint64 {
	product, err := CheckedMulU64(a, b)
	if err != nil {
		return math.MaxUint64
	}
	return product
}

func SaturatingAddU32(a uint32, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return math.MaxUint32
	}
	return sum
}

func SaturatingMulU32(a uint32, b uint32) uint32 {
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	if product/a != b {
		return math.MaxUint32
	}
	return product
}

func Uint64ToLeBytes(v uint64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b
}

func Uint64FromLeBytes(b [8]byte) uint64 {
	return binary.LittleEndian.Uint64(b[:])
}

var maxUint128 = func() wide.Uint128 {
	m := wide.Uint128FromUint64(math.MaxUint64)
	// (2^64-1)^2 + 2*(2^64-1) == 2^128 - 1
	return m.Mul(m).Add(m).Add(m)
}()

func CheckedAddU128(a wide.Uint128, b wide.Uint128) (wide.Uint128, error) {
	sum := a.Add(b)
	if sum.Cmp(a) < 0 {
		return wide.Uint128FromUint64(0), ErrOverflow
	}
	return sum, nil
}

func CheckedMulU128(a wide.Uint128, b wide.Uint128) (wide.Uint128, error) {
	zero := wide.Uint128FromUint64(0)
	if a == zero || b == zero {
		return zero, nil
	}
	product := a.Mul(b)
	if product.Div(a) != b {
		return zero, ErrOverflow
	}
	return product, nil
}

func SaturatingAddU128(a wide.Uint128, b wide.Uint128) wide.Uint128 {
	sum := a.Add(b)
	if sum.Cmp(a) < 0 {
		return maxUint128
	}
	return sum
}

// CeilDivU128 divides a by b, rounding upwards.
func CeilDivU128(a wide.Uint128, b wide.Uint128) (wide.Uint128, error) {
	zero := wide.Uint128FromUint64(0)
	if b == zero {
		return zero, ErrDivideByZero
	}
	if a == zero {
		return zero, nil
	}
	one := wide.Uint128FromUint64(1)
	return a.Sub(one).Div(b).Add(one), nil
}
