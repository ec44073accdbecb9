//go:build !fastmath

package mathx

import "math"

// Log2 returns log2(x). Cents conversions go through here.
func Log2(x float64) float64 { return math.Log2(x) }

// Pow2 returns 2^x.
func Pow2(x float64) float64 { return math.Exp2(x) }

// Exp returns e^x. The formant smoothing factor goes through here.
func Exp(x float64) float64 { return math.Exp(x) }

// Pow10 returns 10^x, used for dB to linear conversion.
func Pow10(x float64) float64 { return math.Pow(10, x) }
