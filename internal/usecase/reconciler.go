package usecase

// ReconcileSpec describes how to line up a fetched source population against
// the persisted one. SourceKey returns ok=false for source items with no
// usable natural key; those are counted as dropped rather than created.
type ReconcileSpec[K comparable, S any, P any] struct {
	SourceKey func(S) (K, bool)
	RecordKey func(P) K
	// Changed reports whether the source item is fresher than the persisted
	// record it matched.
	Changed func(S, P) bool
	// Merge folds the source item into the persisted record, preserving the
	// record's store identity and side-effect handles.
	Merge func(S, P) P
}

// Match pairs a source item with the persisted record it updates.
type Match[S any, P any] struct {
	Source S
	Record P
}

// ReconcileResult partitions the source population. Every persisted key is
// kept out of ToCreate even when the source repeats it.
type ReconcileResult[S any, P any] struct {
	ToCreate []S
	ToUpdate []Match[S, P]
	Noop     int
	Dropped  int
}

// Reconcile computes the create/update/no-op partition of a fetched source
// population against the persisted records. Source items whose key is already
// queued for creation are dropped as duplicates.
func Reconcile[K comparable, S any, P any](sources []S, records []P, spec ReconcileSpec[K, S, P]) ReconcileResult[S, P] {
	byKey := make(map[K]P, len(records))
	for _, record := range records {
		byKey[spec.RecordKey(record)] = record
	}

	var result ReconcileResult[S, P]
	queued := make(map[K]struct{})

	for _, source := range sources {
		key, ok := spec.SourceKey(source)
		if !ok {
			result.Dropped++
			continue
		}

		if record, exists := byKey[key]; exists {
			if spec.Changed(source, record) {
				result.ToUpdate = append(result.ToUpdate, Match[S, P]{Source: source, Record: spec.Merge(source, record)})
			} else {
				result.Noop++
			}
			continue
		}

		if _, dup := queued[key]; dup {
			result.Dropped++
			continue
		}
		queued[key] = struct{}{}
		result.ToCreate = append(result.ToCreate, source)
	}

	return result
}
