package syncer

// Progress is a read-only snapshot of a running batch. Counts only ever
// increase over the lifetime of one batch.
type Progress struct {
	// Total is the number of notes the batch will visit.
	Total int

	// Completed counts notes processed without error, including skips.
	Completed int

	// Skipped counts notes whose embedding was already fresh.
	Skipped int

	// Failed counts notes whose processing errored.
	Failed int

	// Current names the note about to be processed, or "" at the final
	// boundary call.
	Current string
}

// ProgressFunc receives progress snapshots during a batch run. It is
// invoked before each note starts and once more at the end with Current
// cleared.
type ProgressFunc func(Progress)

// BatchResult aggregates the outcome of one batch run.
type BatchResult struct {
	// Success is the number of notes actually (re-)embedded.
	Success int

	// Skipped is the number of notes left untouched because they were
	// already fresh.
	Skipped int

	// Failed is the number of notes that errored.
	Failed int
}
