package lootdb

import (
	"sort"

	"github.com/raehik/loot-api/pkg/metadata"
)

// KnownBashTags returns the sorted union of both lists' tag
// vocabularies: declared bash_tags plus every tag name any entry
// suggests.
func (db *Database) KnownBashTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, t := range append(db.masterlist.BashTags(), db.userlist.BashTags()...) {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

// GetGeneralMessages returns the list-level messages, masterlist's
// first. When evaluateConditions is set, cached condition results are
// invalidated first (the call is the freshness barrier) and messages
// whose condition does not hold are dropped.
func (db *Database) GetGeneralMessages(evaluateConditions bool) ([]metadata.Message, error) {
	msgs := append(db.masterlist.Messages(), db.userlist.Messages()...)
	if !evaluateConditions {
		return msgs, nil
	}

	eval, err := db.evaluator()
	if err != nil {
		return nil, err
	}
	eval.Cache().Invalidate()
	return eval.FilterMessages(msgs)
}
