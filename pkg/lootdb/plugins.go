package lootdb

import (
	"github.com/raehik/loot-api/pkg/metadata"
)

// GetPluginMetadata resolves the metadata that applies to the named
// plugin. The masterlist's entry (exact plus matching regex entries)
// forms the base; with includeUserMetadata the userlist's entry is
// merged on top. With evaluateConditions the merged result is reduced
// to the parts whose conditions hold, using cached results where
// available. The result is name-only when nothing applies.
func (db *Database) GetPluginMetadata(name string, includeUserMetadata, evaluateConditions bool) (metadata.PluginMetadata, error) {
	md, err := db.masterlist.FindPlugin(name)
	if err != nil {
		return metadata.PluginMetadata{}, err
	}

	if includeUserMetadata {
		user, err := db.userlist.FindPlugin(name)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		md.Merge(user)
	}

	if evaluateConditions {
		eval, err := db.evaluator()
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		md, err = eval.EvaluateAll(md)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
	}
	return md, nil
}

// GetPluginUserMetadata resolves the named plugin's metadata from the
// userlist alone.
func (db *Database) GetPluginUserMetadata(name string, evaluateConditions bool) (metadata.PluginMetadata, error) {
	md, err := db.userlist.FindPlugin(name)
	if err != nil {
		return metadata.PluginMetadata{}, err
	}
	if evaluateConditions {
		eval, err := db.evaluator()
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		md, err = eval.EvaluateAll(md)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
	}
	return md, nil
}

// SetPluginUserMetadata replaces the userlist entry for md's plugin
// with md. There is no partial update; what is passed is what is
// stored.
func (db *Database) SetPluginUserMetadata(md metadata.PluginMetadata) error {
	// Validates the name, including regex entry names, before the old
	// entry is dropped.
	if _, err := metadata.NewPluginMetadata(md.Name); err != nil {
		return err
	}
	db.userlist.ErasePlugin(md.Name)
	return db.userlist.AddPlugin(md)
}

// DiscardPluginUserMetadata removes the userlist entry whose name
// matches the given name exactly (ignoring case). Regex entries that
// merely match the name stay. Discarding an absent name is a no-op.
func (db *Database) DiscardPluginUserMetadata(name string) {
	db.userlist.ErasePlugin(name)
}

// DiscardAllUserMetadata empties the userlist.
func (db *Database) DiscardAllUserMetadata() {
	db.userlist.Clear()
}
