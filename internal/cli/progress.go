package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/roomrush/internal/model"
)

// PrefetchBar shows pre-fetch progress, one step per condition.
type PrefetchBar struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
	found  int
}

// NewPrefetchBar creates a bar for total conditions.
func NewPrefetchBar(w io.Writer, total int) *PrefetchBar {
	if w == nil {
		w = os.Stdout
	}
	b := &PrefetchBar{writer: w}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Pre-fetching room ids...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return b
}

// Update matches engine.PrefetchProgress.
func (b *PrefetchBar) Update(done, _ int, c model.Condition, roomIDs []string) {
	b.found += len(roomIDs)
	b.bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset] (%d rooms so far)", c.CommunityName, b.found))
	if err := b.bar.Set(done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Found returns the number of room ids seen so far.
func (b *PrefetchBar) Found() int {
	return b.found
}
