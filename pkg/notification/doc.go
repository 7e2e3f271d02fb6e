// Package notification defines the per-channel delivery record, its status
// state machine and the storage contract shared by the delivery service,
// the retry queue and the reminder sweeps.
//
// A logical send fans out into one Notification per enabled channel. Each
// record moves through a forward-only status machine:
//
//	pending -> sent -> (delivered) | failed
//	failed  -> pending   (bounded retry)
//	sent | delivered -> read   (in-app only, user-triggered)
//
// Terminal states are read, and failed once the retry budget is exhausted.
package notification
