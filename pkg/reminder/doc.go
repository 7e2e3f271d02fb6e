// Package reminder sweeps upstream scheduled entities (appointments and
// same-day service bookings) and emits reminder notifications exactly
// once per entity and lead-time window.
//
// Each sweep targets a disjoint window, so an appointment can match the
// 24-hour sweep and the 1-hour sweep but never the same sweep twice.
// A per-entity flag is set after the send is attempted, regardless of
// dispatch outcome: a reminder counts as handled once it was initiated,
// and delivery failures are the retry queue's problem.
package reminder
