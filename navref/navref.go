// Package navref defines the node reference used throughout the
// archipelago: one polygon of one island, addressed by value (spec §3,
// §9 "node references are tagged pairs; equality and hashing are
// structural. They are used as A* states directly").
package navref

import "github.com/arl/archipelago/idtable"

// Node identifies one polygon of one island. It is comparable, so it can be
// used directly as an astar.Problem state or a map key.
type Node struct {
	Island  idtable.ID
	Polygon int
}
