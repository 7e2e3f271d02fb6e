// Package redis provides the Redis connection plumbing behind the
// in-app real-time fan-out: a retrying Connect, an env-driven Config and
// a health probe.
package redis
