// Package domain defines the core business types for the lead engagement engine.
//
// Types in this package are pure value objects. LeadProfile and EngagementPlan
// are immutable: every update goes through a With* method that returns a new
// value, and construction is the single validation point. Nothing in this
// package touches storage, Redis, or HTTP.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
