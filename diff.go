package modtl

// DiffResult is the difference between two versions of a localization file.
type DiffResult struct {
	// Added holds entries whose text is new.
	Added []Entry

	// Removed holds entries whose text no longer appears.
	Removed []Entry

	// Unchanged holds entries present in both versions.
	Unchanged []Entry

	// Modified pairs entries whose key stayed but whose text changed.
	Modified []ModifiedEntry
}

// ModifiedEntry is an entry whose text changed between versions.
type ModifiedEntry struct {
	Old Entry
	New Entry
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
	Modified  int
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
	}
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// NeedsTranslation returns added and modified entries.
func (d *DiffResult) NeedsTranslation() []Entry {
	result := make([]Entry, 0, len(d.Added)+len(d.Modified))
	result = append(result, d.Added...)
	for _, m := range d.Modified {
		result = append(result, m.New)
	}
	return result
}

// DiffContent compares entries by text hash. The result keeps the order of
// the input slices.
func DiffContent(oldEntries, newEntries []Entry) *DiffResult {
	result := &DiffResult{}

	oldHashes := make(map[string]bool, len(oldEntries))
	newHashes := make(map[string]bool, len(newEntries))
	for _, e := range oldEntries {
		oldHashes[e.Hash] = true
	}
	for _, e := range newEntries {
		newHashes[e.Hash] = true
	}

	seen := make(map[string]bool)
	for _, e := range oldEntries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if newHashes[e.Hash] {
			result.Unchanged = append(result.Unchanged, e)
		} else {
			result.Removed = append(result.Removed, e)
		}
	}

	clear(seen)
	for _, e := range newEntries {
		if seen[e.Hash] || oldHashes[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		result.Added = append(result.Added, e)
	}

	return result
}

// DiffContentWithContext is DiffContent plus detection of modified entries:
// a removed and an added entry with the same key, or failing that the same
// non-empty context, are reported as one modification.
func DiffContentWithContext(oldEntries, newEntries []Entry) *DiffResult {
	result := DiffContent(oldEntries, newEntries)
	if len(result.Added) == 0 || len(result.Removed) == 0 {
		return result
	}

	addedMatched := make(map[int]bool)
	removedMatched := make(map[int]bool)
	match := func(same func(a, b Entry) bool) {
		for ri, removed := range result.Removed {
			if removedMatched[ri] {
				continue
			}
			for ai, added := range result.Added {
				if addedMatched[ai] || !same(removed, added) {
					continue
				}
				result.Modified = append(result.Modified, ModifiedEntry{Old: removed, New: added})
				addedMatched[ai] = true
				removedMatched[ri] = true
				break
			}
		}
	}
	match(func(a, b Entry) bool { return a.Key != "" && a.Key == b.Key })
	match(func(a, b Entry) bool { return a.Context != "" && a.Context == b.Context })

	added := make([]Entry, 0, len(result.Added))
	for i, e := range result.Added {
		if !addedMatched[i] {
			added = append(added, e)
		}
	}
	result.Added = added

	removed := make([]Entry, 0, len(result.Removed))
	for i, e := range result.Removed {
		if !removedMatched[i] {
			removed = append(removed, e)
		}
	}
	result.Removed = removed

	return result
}
