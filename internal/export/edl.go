package export

import (
	"fmt"
	"math"
	"strings"
)

// GenerateEDL renders events as a CMX3600 edit decision list. Events are laid
// back to back on the record side in timeline order.
func GenerateEDL(events []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(defaultFrameRate)
	}

	lines := []string{"TITLE: " + title}
	if isDropFrame(frameRate) {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordMs := 0
	for i, ev := range events {
		durationMs := ev.EndMs - ev.StartMs
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s",
				i+1, "AX", "V",
				msToTimecode(ev.StartMs, fps), msToTimecode(ev.EndMs, fps),
				msToTimecode(recordMs, fps), msToTimecode(recordMs+durationMs, fps),
			),
			"* FROM CLIP NAME:  "+ev.ClipName,
		)
		if ev.MediaPath != "" {
			lines = append(lines, "* MEDIA PATH:  "+ev.MediaPath)
		}
		recordMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func isDropFrame(frameRate float64) bool {
	return math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", totalSeconds/3600, totalSeconds/60%60, totalSeconds%60, frames)
}
