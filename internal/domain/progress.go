package domain

// ProgressFunc reports download progress.
// Called once per completed page: (20, 95), (40, 95), ...
type ProgressFunc func(loaded, total int)

// SyncResult summarizes what happened during a sync operation.
type SyncResult struct {
	QueryKey string // Family key the items were stored under
	Pages    int    // Pages fetched from the source
	Count    int    // Items received
	Found    int    // Total reported by the source (FoundUnknown if not reported)
	Changed  bool   // false if the cache already held identical data
}
