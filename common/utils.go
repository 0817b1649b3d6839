package common

import (
	"errors"
	"math/big"
)

// MaxUint256 is the ceiling every checked monetary computation in this
// module is bounded against.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var ErrUint256Overflow = errors.New("value exceeds uint256 range")

// CheckedAdd returns x+y, failing closed if the sum would not fit in a
// uint256 rather than silently wrapping.
func CheckedAdd(x, y *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(x, y)
	if sum.Sign() < 0 || sum.Cmp(MaxUint256) > 0 {
		return nil, ErrUint256Overflow
	}
	return sum, nil
}

// CheckedSub returns x-y, failing closed on underflow instead of returning a
// negative amount.
func CheckedSub(x, y *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(x, y)
	if diff.Sign() < 0 {
		return nil, ErrUint256Overflow
	}
	return diff, nil
}

// MulDiv computes floor(x*y/d) using unbounded precision for the
// intermediate product, then checks the result still fits a uint256. d must
// be non-zero.
func MulDiv(x, y, d *big.Int) (*big.Int, error) {
	if d.Sign() == 0 {
		return nil, errors.New("division by zero")
	}
	prod := new(big.Int).Mul(x, y)
	q := new(big.Int).Div(prod, d)
	if q.Sign() < 0 || q.Cmp(MaxUint256) > 0 {
		return nil, ErrUint256Overflow
	}
	return q, nil
}
