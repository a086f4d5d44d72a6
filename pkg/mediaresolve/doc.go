// Package mediaresolve provides a reusable library for resolving and
// registering video assets whose bytes may live in several storage
// backends at once, with pluggable repository, prober, and external
// service backends.
//
// It exposes a single Service interface that orchestrates idempotent
// asset registration keyed by an external processor id, candidate
// location generation from naming conventions, reachability probing,
// reference repair, thumbnail production through a fallback pipeline,
// and ordered playback resolution. Implementations of repositories
// (e.g., memory, Postgres), probers (HTTP, S3), and placeholder stores
// are provided under subpackages.
//
// Storage References
//
// A VideoAsset carries zero or more StorageReferences, each naming one
// backend location for the same bytes. References are hints, not
// guarantees: a reference is trusted only within the verification TTL
// of its VerifiedAt stamp, and the discovery operations re-probe stale
// references rather than assuming they still resolve. The catalog's
// generated candidates are ranked by confidence but never treated as
// authoritative until a probe confirms them.
package mediaresolve
