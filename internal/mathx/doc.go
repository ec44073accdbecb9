// Package mathx selects between exact and approximate transcendental
// functions for the pitch and formant hot paths. Build with the fastmath
// tag to use the algo-approx approximations.
package mathx
