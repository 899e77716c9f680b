package engine

import (
	"fmt"
	"time"
)

// FormatElapsed renders a duration as M:SS, truncating to whole seconds.
// Negative durations render as 0:00.
func FormatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// CompletionMessage is the summary shown to a player who cleared the board.
func CompletionMessage(elapsed string, moves int) string {
	return fmt.Sprintf("¡Excelente memoria! Completaste en %s con %d movimientos", elapsed, moves)
}
