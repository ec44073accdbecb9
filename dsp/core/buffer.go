package core

// EnsureLen returns buf resliced to n samples when its capacity allows and a
// fresh slice otherwise. Estimators call it once per frame to reuse scratch
// space; the contents are unspecified and must be overwritten.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
