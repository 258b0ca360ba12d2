// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (errors.go, votable.go, question.go, answer.go,
// notification.go, etc.) with shared types and cross-cutting interfaces. No implementation code,
// just contracts. Store adapters implement the interfaces; the app layer consumes them.
package domain
