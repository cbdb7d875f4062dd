package consensus

import "fmt"

// maxIntAsUint64 returns the maximum value representable by the built-in int type, expressed as a uint64.
// The result is platform-dependent (e.g., 2^31-1 on 32-bit systems, 2^63-1 on 64-bit systems).
func maxIntAsUint64() uint64 {
	return uint64(^uint(0) >> 1)
}

// toIntLen converts v to an int, rejecting values that would overflow the
// platform int (guards against attacker-supplied lengths on 32-bit hosts).
func toIntLen(v uint64, name string) (int, error) {
	if v > maxIntAsUint64() {
		return 0, txerrf(ErrParse, "%s overflows usize", name)
	}
	// #nosec G115 -- v is bounded to int by maxIntAsUint64 above.
	return int(v), nil
}

// addInt64 returns a+b, or an error if the addition would overflow int64.
func addInt64(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("consensus: int64 overflow")
	}
	return sum, nil
}
