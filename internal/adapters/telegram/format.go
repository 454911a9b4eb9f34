package telegram

import (
	"fmt"
	"time"
)

// FormatRemaining выводит длительность для пользователя: «1ч 5м», «12м» или «40с».
// Секунды округляются вверх, чтобы не показывать «0с» при ненулевом остатке.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0с"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	hours := secs / 3600
	minutes := secs % 3600 / 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dч %dм", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dч", hours)
	case minutes > 0:
		return fmt.Sprintf("%dм", minutes)
	default:
		return fmt.Sprintf("%dс", secs)
	}
}
