// Package preferences resolves which channels a notification should use
// for a given user and type, and which address or token each channel
// delivers to.
//
// Every user has exactly one preferences record. The record is created
// lazily with defaults the first time it is needed, so a missing record is
// never an error. Channel and category settings are explicit struct fields
// rather than string-keyed maps, keeping lookups compile-time safe.
package preferences
