// Package delivery orchestrates the notification record lifecycle.
//
// A logical send fans out into one persistent record per channel the
// user's preferences resolve to. Each record is dispatched through the
// channel provider registry; the outcome is persisted before the caller
// sees it, so the record store is always the source of truth. Failed
// dispatches enter an in-memory retry queue and, as a restart recovery
// path, can be swept back to pending from the store.
package delivery
