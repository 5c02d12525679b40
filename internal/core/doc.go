// Package core provides the business logic for the Creative Community Hub.
//
// This package holds all domain logic independent of any UI or transport
// layer. It can be used by web handlers, JSON API handlers, or tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Registration: one submitted community member record, persisted through
//     a [Store] implementation (Postgres, SQLite or in-memory).
//   - Form: the five-step registration controller that validates each step
//     before advancing and submits on the final step.
//   - Service: the main entry point for all operations (register, list,
//     delete, export, summarize).
//   - Audit: a record of every registration change made through the service.
//
// # Multi-Step Form
//
// The form walks through fixed steps in order:
//
//  1. Name
//  2. Mobile number (format check, then uniqueness check against the store)
//  3. Room number
//  4. Group
//  5. Interests and software (submission)
//
// Each call to [Form.Advance] copies only the current step's fields into the
// draft, so data for steps not yet visited is never touched. [Form.Back]
// never re-validates.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - REG001-REG007: Registration errors (duplicates, in-flight checks)
//   - VAL001-VAL003: Validation errors
//   - EXP001-EXP003: Export errors
//   - AUTH001-AUTH002: Admin authentication errors
//   - DB001-DB007: Database errors (constraints, connections)
//   - REQ001-REQ002, RATE001: Cancelled, timed out and throttled requests
//
// # Audit Logging
//
// Registration changes are recorded in the audit log with severity levels:
//
//   - Low: Exports
//   - Medium: New registrations, admin logins
//   - High: Single and bulk deletions
//   - Critical: Clearing all registrations
package core
