package metadata

// RevisionInfo describes the recorded provenance of an updatable list
// file.
type RevisionInfo struct {
	ID       string `json:"id"`       // Upstream revision the file was fetched at.
	Date     string `json:"date"`     // ISO 8601 date the revision was recorded.
	Modified bool   `json:"modified"` // Whether the file has been edited since.
}
