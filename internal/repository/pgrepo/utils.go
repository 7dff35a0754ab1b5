package pgrepo

import (
	"errors"
	"math"
)

var errValueOutOfRange = errors.New("value out of int32 range")

func safeConvertUintToInt32(v uint) (int32, error) {
	if v > math.MaxInt32 {
		return 0, errValueOutOfRange
	}
	return int32(v), nil
}
