package domain

// StateStore persists manager snapshots between runs.
// Names encode ancestry (site:X:themes) so a prefix can be invalidated at once.
type StateStore interface {
	LoadState(name string) (State, bool)
	SaveState(name string, state State) error

	// SavedAt returns the unix time of the last save (0 if never saved)
	SavedAt(name string) int64

	InvalidateState(name string)
	InvalidatePrefix(prefix string)
	InvalidateAll()

	Close() error
}

// SyncProgress reports progress during a multi-page fetch.
type SyncProgress struct {
	QueryKey string
	Loaded   int
	Total    int
	Done     bool
	Error    error
}

// SyncObserver receives progress updates during sync operations.
type SyncObserver interface {
	OnProgress(progress SyncProgress)
}

// NoOpObserver discards progress updates (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(SyncProgress) {}
