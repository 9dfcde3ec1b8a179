package engine

// Store is a generic interface for storing and retrieving payloads associated
// with document IDs.
//
// Implementations can provide different storage strategies (in-memory,
// disk-backed, distributed, etc.).
type Store[T any] interface {
	// Get retrieves the payload associated with the given ID.
	// Returns the payload and true if found, or zero value and false if not found.
	Get(id uint64) (T, bool)

	// Set stores a payload associated with the given ID.
	// If the ID already exists, it updates the payload.
	Set(id uint64, data T) error

	// Delete removes the payload associated with the given ID.
	// Returns ErrNotFound if the ID doesn't exist.
	Delete(id uint64) error

	// BatchGet retrieves payloads for multiple IDs in a single operation.
	// Returns a map of id -> payload for all found IDs.
	BatchGet(ids []uint64) (map[uint64]T, error)

	// BatchSet stores multiple id -> payload pairs in a single operation.
	BatchSet(items map[uint64]T) error

	// BatchDelete removes payloads for multiple IDs in a single operation.
	BatchDelete(ids []uint64) error

	// Len returns the number of items currently stored.
	Len() int

	// Clear removes all items from the store.
	Clear() error

	// ToMap returns a copy of all payloads as a map (for serialization).
	ToMap() map[uint64]T
}
