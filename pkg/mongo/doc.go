// Package mongo provides the MongoDB connection plumbing shared by the
// record and preference storages: a retrying Connect, an env-driven
// Config and a health probe.
package mongo
