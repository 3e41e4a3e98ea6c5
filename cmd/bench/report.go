package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/xslock/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
)

var percentiles = []float64{0.5, 0.95, 0.99}

// printResult prints the result of a scenario run in a formatted way
func printResult(w io.Writer, r *Result) {
	fmt.Fprintf(w, "%-22s%s\n", "mode", r.Mode)
	fmt.Fprintf(w, "%-22s%s\n", "elapsed", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "%-22s%d\n", "locks held", r.Interval.Len())
	fmt.Fprintf(w, "%-22s%d\n", "errors", len(r.Errors))
	fmt.Fprintf(w, "%-22s%d\n", "violations", len(r.Violations()))
	fmt.Fprintf(w, "%-22s%d\n", "shared overlaps", r.Interval.SharedOverlaps())
	fmt.Fprintf(w, "%-22s%d\n", "max concurrent", r.Interval.MaxConcurrency())

	fmt.Fprintln(w, "\nwait times:")
	for _, name := range append([]string{"exclusive", "shared"}, r.Workers()...) {
		printTimer(w, name, r.Wait(name).Snapshot())
	}

	fmt.Fprintln(w, "\nfairness (mean wait per worker):")
	for _, exclusive := range []bool{true, false} {
		kind := "shared"
		if exclusive {
			kind = "exclusive"
		}
		f := r.Fairness(exclusive)
		fmt.Fprintf(w, "  %-20s%.2f (min %s, max %s)\n", kind, f.Fairness,
			time.Duration(f.Min).Round(time.Microsecond), time.Duration(f.Max).Round(time.Microsecond))
	}

	for _, v := range r.Violations() {
		fmt.Fprintf(w, "VIOLATION: %s overlaps %s\n", v[0], v[1])
	}
	for _, err := range r.Errors {
		fmt.Fprintf(w, "ERROR: %v\n", err)
	}
}

func printTimer(w io.Writer, name string, t gometrics.Timer) {
	if t.Count() == 0 {
		fmt.Fprintf(w, "  %-20sno samples\n", name)
		return
	}
	ps := t.Percentiles(percentiles)
	fmt.Fprintf(w, "  %-20sn=%d mean=%s p50=%s p95=%s p99=%s max=%s\n", name, t.Count(),
		round(t.Mean()), round(ps[0]), round(ps[1]), round(ps[2]), round(float64(t.Max())))
}

func round(ns float64) time.Duration {
	return time.Duration(ns).Round(time.Microsecond)
}

// writeResultsToCSV writes one row per worker and kind to a CSV file
func writeResultsToCSV(csvPath string, r *Result, config *util.StoreConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := writeCSV(file, r, config); err != nil {
		return err
	}
	return file.Sync()
}

func writeCSV(w io.Writer, r *Result, config *util.StoreConfig) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Name", "Count", "MeanWaitNs", "P50WaitNs", "P95WaitNs", "P99WaitNs", "MaxWaitNs",
		"Mode", "Store", "Addresses", "ElapsedMs", "Violations", "SharedOverlaps", "Errors",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, name := range append([]string{"exclusive", "shared"}, r.Workers()...) {
		t := r.Wait(name).Snapshot()
		ps := t.Percentiles(percentiles)
		row := []string{
			name,
			strconv.FormatInt(t.Count(), 10),
			fmt.Sprintf("%.0f", t.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(t.Max(), 10),
			r.Mode,
			config.Type,
			strings.Join(config.RedisAddrs, ";"),
			strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
			strconv.Itoa(len(r.Violations())),
			strconv.Itoa(r.Interval.SharedOverlaps()),
			strconv.Itoa(len(r.Errors)),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
