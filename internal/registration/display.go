package registration

import (
	"fmt"
	"time"
)

// MaskPhone shows the operator prefix and hides the subscriber number,
// "01712345678" becomes "01712*****". Anything that is not 11 characters
// is returned unchanged.
func MaskPhone(phone string) string {
	if len(phone) != 11 {
		return phone
	}
	return phone[:5] + "*****"
}

// RemainingSeconds returns the whole seconds left until deadline, never negative.
func RemainingSeconds(deadline, now time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	left := deadline.Unix() - now.Unix()
	if left < 0 {
		return 0
	}
	return int(left)
}

// FormatRemaining renders seconds as m:ss.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
