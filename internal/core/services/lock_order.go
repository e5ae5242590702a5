package services

import "slices"

// LockOrder returns the distinct ids in ascending bytewise order. Every unit of
// work that locks more than one account must acquire the locks in this order so
// that two transfers over the same pair can never wait on each other in a cycle.
func LockOrder(ids ...string) []string {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}
