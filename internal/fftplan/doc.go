// Package fftplan caches FFT plans by transform size so that frame-sized
// transforms in the pitch and spectrum paths do not rebuild twiddle tables.
package fftplan
