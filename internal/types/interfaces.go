// internal/types/interfaces.go
package types

// Lister exposes a read-only view of a record sequence in insertion order.
type Lister[T any] interface {
	List() []T
}

// MessageSource is the read side of the message collection consumed by analytics.
type MessageSource = Lister[Message]
