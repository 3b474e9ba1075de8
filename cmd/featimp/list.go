package main

import (
	"fmt"
	"io"
	"time"

	"featimp/internal/common"
	"featimp/internal/importance"
	"featimp/internal/storage"
)

// listStore prints the stored dataset snapshots and, per method, the runs
// started within since of now.
func listStore(w io.Writer, store *storage.Store, now time.Time, since time.Duration) error {
	names, err := store.ListDatasets()
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	fmt.Fprintf(w, "=== datasets (%d) ===\n", len(names))
	for _, n := range names {
		fmt.Fprintln(w, n)
	}

	for _, method := range []string{common.MethodMDI, common.MethodMDA, common.MethodSFI} {
		runs, err := store.GetRuns(method, now.Add(-since), now)
		if err != nil {
			return fmt.Errorf("list %s runs: %w", method, err)
		}
		fmt.Fprintf(w, "=== %s runs (%d) ===\n", method, len(runs))
		for _, r := range runs {
			top := "-"
			if ranked := r.Importance.Ranked(); len(ranked) > 0 {
				top = ranked[0]
			}
			fmt.Fprintf(w, "%s %s scoring=%s oos=%.5f top=%s\n",
				r.StartedAt.UTC().Format(time.RFC3339), r.ID, r.Scoring, r.OOS, top)
		}
	}
	return nil
}

// showLatest prints the report of the most recent run of method.
func showLatest(w io.Writer, store *storage.Store, method string) error {
	res, err := store.LatestRun(method)
	if err != nil {
		return err
	}
	printReport(w, res)
	return nil
}

func printReport(w io.Writer, res *importance.Result) {
	fmt.Fprintf(w, "=== %s importance (%s) ===\n", res.Method, res.Scoring)
	for _, name := range res.Importance.Ranked() {
		s, _ := res.Importance.Get(name)
		fmt.Fprintf(w, "%-12s mean=%9.5f std=%9.5f\n", name, s.Mean, s.Std)
	}
	if res.OOB != nil {
		fmt.Fprintf(w, "oob=%.5f ", *res.OOB)
	}
	fmt.Fprintf(w, "oos=%.5f duration=%s\n", res.OOS, res.Duration.Round(time.Millisecond))
}
