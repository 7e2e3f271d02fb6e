// Package queue implements the in-process delivery retry engine.
//
// Jobs are ephemeral: they live in a delay queue ordered by next-eligible
// time and are driven by a single periodic tick. The tick is single-flight
// and dispatches a bounded batch in parallel, isolating each job's failure
// or panic from its siblings. A failed job is re-enqueued after a fixed
// delay until its retry budget is exhausted, at which point the failure is
// terminal and only logged; the backing record was already marked failed
// by the delivery service.
//
// The queue does not survive a process restart. Records already persisted
// as failed can be recovered through the delivery service's retry sweep;
// jobs that were only in memory are lost.
package queue
