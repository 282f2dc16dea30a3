// Package types defines the shared types and interface boundaries of the
// wablaster library: instance records, lifecycle statuses, provider events,
// recovery queue entries, and the external collaborator contracts
// (InstanceStore, SessionProvider, EventPublisher, Notifier).
//
// Components accept these interfaces and return concrete structs. Sentinel
// errors live in errors.go and support errors.Is/errors.As checks.
package types
