package domain

// FoundUnknown marks a QueryResult whose total count has not been reported.
const FoundUnknown = -1

// QueryResult is the ordered key list tracked for one query key.
// An empty string in ItemKeys marks a position whose item has not been loaded yet.
type QueryResult struct {
	Query    Query    `json:"query"`
	ItemKeys []string `json:"itemKeys"`
	Found    int      `json:"found"`
}

// HasFound reports whether the server told us the total count.
func (r QueryResult) HasFound() bool {
	return r.Found >= 0
}

// Complete reports whether every member of the result set is known locally.
func (r QueryResult) Complete() bool {
	for _, k := range r.ItemKeys {
		if k == "" {
			return false
		}
	}
	return !r.HasFound() || len(r.ItemKeys) == r.Found
}

// State is the serializable content of a query manager.
type State struct {
	Items   map[string]Item        `json:"items"`
	Queries map[string]QueryResult `json:"queries"`
}
