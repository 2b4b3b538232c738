package domain

import "sort"

// TodoLists is an ordered collection of lists. Insertion order is incidental;
// callers that need display order call Sort.
type TodoLists []*TodoList

// Find returns the list with the given id, or nil when no list matches.
// A miss is an expected outcome here, not an error.
func (ls TodoLists) Find(id uint) *TodoList {
	for _, l := range ls {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Sort orders the collection in place per the display rule and returns the
// receiver for chaining. The sort is stable, so sorting an already-sorted
// collection changes nothing.
func (ls TodoLists) Sort() TodoLists {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].Compare(ls[j]) < 0
	})
	return ls
}
