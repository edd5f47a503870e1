package codec

import (
	"fmt"
	"strconv"
)

// Int64 stores integers as base-10 text, the form INCRBY operates on.
type Int64 struct{}

func (Int64) Encode(n int64) ([]byte, error) { return strconv.AppendInt(nil, n, 10), nil }
func (Int64) Decode(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("codec: int64: %w", err)
	}
	return n, nil
}

// Float64 stores floats in the shortest decimal form that round-trips,
// the form INCRBYFLOAT reads and writes.
type Float64 struct{}

func (Float64) Encode(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}
func (Float64) Decode(b []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, fmt.Errorf("codec: float64: %w", err)
	}
	return f, nil
}
