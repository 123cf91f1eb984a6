package domain

import "time"

// Section is the per-title registry of admitted chapter identifiers, in
// admission order.
type Section struct {
	Title     string
	Chapters  []string
	CreatedAt time.Time
}

func (s *Section) Has(chapter string) bool {
	for _, c := range s.Chapters {
		if c == chapter {
			return true
		}
	}
	return false
}

// PartitionChapters splits candidates into chapters not yet admitted and
// duplicates. Input order is kept; a chapter repeated within candidates is
// admitted once and reported as a duplicate afterwards.
func PartitionChapters(existing, candidates []string) (added, duplicates []string) {
	seen := make(map[string]bool, len(existing)+len(candidates))
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range candidates {
		if seen[c] {
			duplicates = append(duplicates, c)
			continue
		}
		seen[c] = true
		added = append(added, c)
	}
	return added, duplicates
}
