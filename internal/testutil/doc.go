// Package testutil provides deterministic test signals and tolerance
// assertions shared by the analysis packages.
package testutil
