package repository

// Store is a key-based blob store. The sync engine keeps its whole state
// (connections, rules, messages) in one JSON document under one key and
// only needs read/write of opaque blobs, so the orchestrator depends on
// this port rather than on a concrete database.
type Store interface {
	// Read returns the blob stored under key, or nil when absent.
	Read(key string) ([]byte, error)

	// Write stores the blob under key, replacing any previous value.
	Write(key string, value []byte) error
}
