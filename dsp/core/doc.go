// Package core holds the small shared pieces of the analysis pipeline:
// processor configuration, numeric helpers, and the optional [Freq] value
// used wherever a frequency may be absent.
package core
