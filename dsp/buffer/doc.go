// Package buffer provides the growable sample accumulator used to cut a
// stream of delivered blocks into overlapping analysis frames, and a pool
// for short-lived decode buffers.
package buffer
