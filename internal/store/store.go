package store

// Store defines the interface for persisting embedding records and the
// derived index summary. Implementations expect at most one writer per
// key; they do not arbitrate concurrent writers to the same note id.
type Store interface {
	// Initialize sets up the underlying storage location. It is
	// idempotent and tolerates the location already existing, including
	// a concurrent create by an external process.
	Initialize() error

	// Close releases any resources held by the store.
	Close() error

	// Save writes or overwrites the record for its note id and keeps
	// the index summary consistent with the write.
	Save(record *Record) error

	// SaveBatch saves records sequentially. There is no atomicity
	// across the batch: a failure leaves earlier records committed.
	SaveBatch(records []*Record) error

	// FindByID returns the record for the note id, or a NotFound error.
	FindByID(noteID string) (*Record, error)

	// FindByPath scans the summary mapping for the note at path and
	// returns its record, or a NotFound error. O(n) in record count.
	FindByPath(path string) (*Record, error)

	// FindAll returns every readable record. Corrupt records are
	// skipped, not surfaced as errors.
	FindAll() ([]*Record, error)

	// Delete removes the record for the note id. Deleting an id that
	// does not exist is not an error.
	Delete(noteID string) error

	// Exists reports whether a record exists for the note id.
	Exists(noteID string) (bool, error)

	// ContentHash returns the stored content hash for the note id
	// without materializing the vector, or "" when absent.
	ContentHash(noteID string) (string, error)

	// UpdateIndexEntry incrementally patches the summary for a single
	// known-fresh record.
	UpdateIndexEntry(record *Record) error

	// UpdateIndex fully rebuilds the summary by scanning all records.
	UpdateIndex() error

	// Index returns the current summary, lazily creating an empty one
	// when none exists and falling back to an empty summary when the
	// persisted one cannot be read.
	Index() (*Summary, error)

	// Count returns the total number of indexed records.
	Count() (int, error)

	// Clear deletes every record and resets the summary to empty.
	Clear() error
}
