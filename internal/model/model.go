package model

// Package model contains domain models/data structures.
// These are pure structs with no database-specific dependencies; they can be
// used across layers (HTTP, service, storage) without coupling to persistence.
// Expiry is always a computed predicate over stored timestamps, never a flag
// maintained by a background job.
