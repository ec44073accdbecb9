// Package track connects the pitch and formant pipelines to audio sources
// and consumers.
//
// A [Session] owns the estimators and stabilizers for one analysis run and
// reports samples to a [Sink]. [Live] drives a session from a stream one
// frame per tick, skipping audio rather than queueing it when ticks are
// late. [Batch] drives a session over a whole recording in delivery order
// with progress, cancellation and a duration cap.
package track
