// Package channel provides the bounded queues behind the recorder pipeline
// and the per-client websocket send buffers.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend delivers without blocking and reports false when the buffer is full.
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// New creates a buffered channel. A non-positive size yields a buffer of one.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](max(1, size))
}
