// Package storage provides the request-scoped key-value store handed to
// the pool SDK for its scan cache.
package storage

// Storage is a string key-value store with index access. The pool client
// keeps scan offsets and decrypted notes in it for the duration of one
// request.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
	Clear()
	// Key returns the key at position index in sorted order.
	Key(index int) (string, bool)
	Len() int
	// Keys returns all keys in sorted order.
	Keys() []string
}
