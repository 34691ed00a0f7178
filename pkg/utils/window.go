package utils

import "time"

// DateWindow is one contiguous slice of a fetch range. From and To are
// inclusive dates, so a window built with chunk c spans at most c+1 days.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Days returns the inclusive span of the window in days.
func (w DateWindow) Days() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// SplitRange splits [from, to] into contiguous, non-overlapping windows of at
// most chunkDays+1 days each, covering the range exactly. An inverted range is
// swapped silently rather than rejected, matching the upstream fetch contract.
func SplitRange(from, to time.Time, chunkDays int) []DateWindow {
	if to.Before(from) {
		from, to = to, from
	}
	if chunkDays < 1 {
		chunkDays = 1
	}

	totalDays := int(to.Sub(from).Hours() / 24)
	start := from

	var windows []DateWindow
	for daysLeft := totalDays; daysLeft >= 0; daysLeft -= chunkDays + 1 {
		span := daysLeft
		if span > chunkDays {
			span = chunkDays
		}
		windows = append(windows, DateWindow{From: start, To: start.AddDate(0, 0, span)})
		start = start.AddDate(0, 0, span+1)
	}

	return windows
}
