// Package lootdb exposes plugin metadata from a masterlist and a
// userlist as one queryable database. Queries resolve the userlist's
// overrides on top of the masterlist and can evaluate metadata
// conditions against the installed game.
//
// A Database is not safe for concurrent use; callers that share one
// across goroutines must serialize access themselves.
package lootdb
