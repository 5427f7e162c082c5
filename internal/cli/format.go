package cli

import (
	"fmt"
	"strconv"
	"time"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatHumanAge renders the backend's human-age estimate, or "-" when
// there is none.
func FormatHumanAge(age *float64) string {
	if age == nil {
		return "-"
	}
	return strconv.FormatFloat(*age, 'f', -1, 64) + " anos"
}
