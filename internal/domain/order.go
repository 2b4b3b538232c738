package domain

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// titleCollator orders titles case-insensitively under the root locale.
// A Collator carries internal buffers and is not safe for concurrent use,
// so all comparisons go through CompareTitles.
var (
	collMu        sync.Mutex
	titleCollator = collate.New(language.Und, collate.IgnoreCase)
)

// CompareTitles reports the locale-aware, case-insensitive ordering of two
// titles: -1 if a sorts before b, 0 if they collate equal, 1 otherwise.
func CompareTitles(a, b string) int {
	collMu.Lock()
	defer collMu.Unlock()
	return titleCollator.CompareString(a, b)
}

// compareByDoneness is the shared two-level ordering rule: anything not done
// sorts before anything done, ties fall back to the title collation.
func compareByDoneness(aDone bool, aTitle string, bDone bool, bTitle string) int {
	if aDone != bDone {
		if aDone {
			return 1
		}
		return -1
	}
	return CompareTitles(aTitle, bTitle)
}
