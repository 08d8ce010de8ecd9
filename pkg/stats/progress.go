package stats

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Reporter prints in-place progress lines for the sender's terminal output.
type Reporter struct {
	total     uint64
	completed uint64
	startNs   uint64
	out       io.Writer
	now       func() uint64
}

// NewReporter returns a reporter over total units of work writing to stdout.
func NewReporter(total uint64) *Reporter {
	return &Reporter{total: total, startNs: monotonicNs(), out: os.Stdout, now: monotonicNs}
}

// Update sets the completed count.
func (r *Reporter) Update(completed uint64) { r.completed = completed }

// Increment advances the completed count by one.
func (r *Reporter) Increment() { r.completed++ }

// Percentage returns completed work as a percentage of total.
func (r *Reporter) Percentage() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.completed) * 100.0 / float64(r.total)
}

// Complete reports whether all work is done.
func (r *Reporter) Complete() bool { return r.completed >= r.total }

// Print writes an in-place progress line with the observed rate.
func (r *Reporter) Print() {
	elapsed := float64(r.now()-r.startNs) / float64(time.Second)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(r.completed) / elapsed
	}
	fmt.Fprintf(r.out, "\rProgress: %d/%d (%d%%) Rate: %d msgs/sec",
		r.completed, r.total, int(r.Percentage()), int(rate))
}

// Finish marks all work complete and terminates the progress line.
func (r *Reporter) Finish() {
	r.completed = r.total
	r.Print()
	fmt.Fprintln(r.out)
}
