// Package party defines identifiers for the members of a threshold group.
package party

import "sort"

// ID identifies a single party (node) within a threshold group. Share-ids in
// this service are always in [1, n]; we render them as decimal strings so
// that the same identifier can label a Shamir x-coordinate and a gossip/RPC
// party reference without a second encoding.
type ID string

// IDSlice is a sortable list of party IDs, used to derive deterministic
// signer-group orderings.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy of the slice.
func (s IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id is present in the slice.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Remove returns a copy of the slice with id removed, if present.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, x := range s {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
