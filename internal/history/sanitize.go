package history

// SanitizeOptions controls filtering and offset handling.
type SanitizeOptions struct {
	ExcludedPaths []string
	// StartFrom is the 1-based position within the already-filtered sequence
	// to resume from.
	StartFrom int
	// LegacyOffset reproduces the shipped offset behavior: the filtered
	// sequence is kept whole and the portion from StartFrom onward is
	// appended to it again, duplicating the tail whenever StartFrom > 1.
	// With LegacyOffset off the result is the plain slice from StartFrom.
	LegacyOffset bool
}

// Sanitize selects and orders the records to replay. Insertion order is
// preserved and excluded paths never appear in the result.
func Sanitize(records []Record, opts SanitizeOptions) []Record {
	excluded := make(map[string]struct{}, len(opts.ExcludedPaths))
	for _, p := range opts.ExcludedPaths {
		excluded[p] = struct{}{}
	}

	filtered := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, skip := excluded[rec.Path]; skip {
			continue
		}
		filtered = append(filtered, rec)
	}

	start := opts.StartFrom - 1
	if start < 0 {
		start = 0
	}

	if !opts.LegacyOffset {
		if start >= len(filtered) {
			return nil
		}
		return filtered[start:]
	}

	if start >= len(filtered) {
		return filtered
	}
	// The tail is run through the exclusion filter a second time. Paths are
	// already clean at this point, so every element survives and the tail is
	// emitted twice.
	for _, rec := range filtered[start:] {
		if _, skip := excluded[rec.Path]; skip {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
