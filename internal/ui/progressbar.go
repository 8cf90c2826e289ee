package ui

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar returns a row counter for one table export. A total of 0
// (unknown or failed estimate) gives an indeterminate spinner. Totals past
// MaxInt64 (MAX() over an unsigned BIGINT index) are clamped.
func NewProgressBar(table string, total uint64, out io.Writer) *progressbar.ProgressBar {
	var max int64
	switch {
	case total == 0:
		max = -1
	case total > math.MaxInt64:
		max = math.MaxInt64
	default:
		max = int64(total)
	}
	return progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(fmt.Sprintf("Exporting %s", table)),
		progressbar.OptionEnableColorCodes(false),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
	)
}

// Advance moves the bar to completed rows. When the estimate was too low the
// maximum is raised to completed instead of failing.
func Advance(bar *progressbar.ProgressBar, completed uint64) error {
	n := int64(completed)
	if max := bar.GetMax64(); max >= 0 && n > max {
		bar.ChangeMax64(n)
	}
	return bar.Set64(n)
}
