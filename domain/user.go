// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// User is a resolved identity for the duration of one inbound event.
// It is re-resolved on every message; a cached copy on a connection is
// advisory only and never trusted for authorization.
type User struct {
	ID       string
	Username string
	Roles    []string
}
