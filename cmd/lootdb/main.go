// The lootdb command queries plugin metadata lists, evaluates their
// conditions against an installed game and keeps the masterlist in
// sync with a remote.
package main

import "github.com/raehik/loot-api/internal/cli"

func main() {
	cli.Execute()
}
