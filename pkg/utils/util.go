package utils

// Chunk splits a slice into batches of at most size elements. The last batch
// may be shorter. A size below 1 yields a single batch.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// Dedup returns the input with duplicates removed, keeping first occurrence order.
func Dedup[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
