// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (result.go, stream.go) hold shared types and the
// consumer-side ports onto the analysis backend and the viewer fan-out.
// No implementation code - just contracts. Keeping interfaces here prevents
// circular imports between the session controller and its adapters.
package domain
