package verify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Countdown blocks for delay, drawing a seconds bar on w, or returns early when ctx ends.
// Explorers often lag the chain head, so verification waits a little after deployment.
func Countdown(ctx context.Context, delay time.Duration, w io.Writer) error {
	if delay <= 0 {
		return nil
	}
	seconds := int64(delay / time.Second)
	bar := progressbar.NewOptions64(seconds,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("waiting before verification"),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.NewTimer(delay)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return bar.Finish()
		case <-ticker.C:
			_ = bar.Add64(1)
		}
	}
}
