// Package canonical produces the canonical JSON snapshot of a query model
// and its content-addressed fingerprint.
//
// Canonical JSON follows RFC 8785: object keys sorted by UTF-16 code units,
// no HTML escaping, strings NFC normalized. Snapshots hold only strings,
// integers, booleans, arrays and objects; floats and null are rejected, so
// two equal models always serialize to the same bytes.
//
// Fingerprint hashes the snapshot with SHA-256 under a versioned domain
// prefix. Equal canonical forms give equal fingerprints, which makes the
// fingerprint usable as a cache key for parsed models and as the key of the
// run log.
package canonical
