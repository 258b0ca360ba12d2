// Package app provides the application service layer.
//
// Engine owns the consistency-critical writes (votes and answer acceptance), Notifier owns the
// notification inbox and push fan-out, Service orchestrates content lifecycle, and Auditor plus
// LedgerReconciler detect and repair drift in derived counters. All of them depend on domain
// interfaces, never on concrete adapters.
package app
