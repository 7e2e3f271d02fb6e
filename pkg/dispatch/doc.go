// Package dispatch defines the uniform send contract over the per-channel
// providers (email, SMS, WhatsApp, push, in-app).
//
// Providers return a normalized Result instead of an error: every internal
// failure, including panics, is folded into {Success: false, Err: ...} so
// callers iterating many records never need channel-specific error
// handling. The Dispatcher is the single routing point from a channel name
// to its provider.
package dispatch
