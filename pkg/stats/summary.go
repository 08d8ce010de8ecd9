package stats

import (
	"fmt"
	"io"
)

// WriteSummary prints the end-of-run statistics block.
func WriteSummary(w io.Writer, lat Latency, tp Throughput) {
	fmt.Fprintf(w, "\n=== Final Statistics ===\n")

	if lat.Count > 0 {
		fmt.Fprintf(w, "Latency Statistics:\n")
		fmt.Fprintf(w, "  Packets: %d\n", lat.Count)
		fmt.Fprintf(w, "  Mean: %.2f us\n", lat.MeanUs())
		fmt.Fprintf(w, "  Min: %.2f us\n", lat.MinUs())
		fmt.Fprintf(w, "  Max: %.2f us\n", lat.MaxUs())
		fmt.Fprintf(w, "  p50: %.2f us\n", lat.PercentileUs(50))
		fmt.Fprintf(w, "  p99: %.2f us\n", lat.PercentileUs(99))
	}

	fmt.Fprintf(w, "\nThroughput Statistics:\n")
	fmt.Fprintf(w, "  Duration: %.2f seconds\n", tp.DurationSeconds())
	fmt.Fprintf(w, "  Packet rate: %.2f pps\n", tp.PacketRate())
	fmt.Fprintf(w, "  Throughput: %.2f Mbps\n", tp.ThroughputMbps())
	fmt.Fprintf(w, "  Loss rate: %.2f%%\n", tp.LossRate()*100)
}
