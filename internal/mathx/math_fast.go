//go:build fastmath

package mathx

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

const ln2 = 0.693147180559945309417232121458

func Log2(x float64) float64 { return approx.FastLog(x) / ln2 }

func Pow2(x float64) float64 { return approx.FastExp(x * ln2) }

func Exp(x float64) float64 { return approx.FastExp(x) }

// Pow10 stays exact: algo-approx has no base-10 power and the HPS path
// converts each bin once per frame.
func Pow10(x float64) float64 { return math.Pow(10, x) }
