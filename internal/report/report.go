// Package report prints summaries of load and extract runs.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/bagtoad/libload/internal/extract"
	"github.com/bagtoad/libload/internal/loader"
)

// Failure pairs a requested library with the reason it did not load.
type Failure struct {
	Name string
	Err  error
}

// PrintLoaded writes a summary of loaded and failed libraries.
func PrintLoaded(w io.Writer, libs []loader.Library, failures []Failure) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Libraries loaded:    %d\n", len(libs))
	fmt.Fprintf(w, "Libraries failed:    %d\n", len(failures))

	if len(libs) > 0 {
		fmt.Fprintln(w)
		for _, lib := range libs {
			fmt.Fprintf(w, "  %s (%d bytes, sha256 %s)\n", lib.Name, lib.Size, shortHash(lib.SHA256))
			fmt.Fprintf(w, "    from %s\n", lib.Bundle)
			fmt.Fprintf(w, "    at   %s\n", lib.Path)
		}
	}

	if len(failures) > 0 {
		sorted := append([]Failure(nil), failures...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		fmt.Fprintln(w)
		for _, f := range sorted {
			fmt.Fprintf(w, "  FAILED %s: %v\n", f.Name, f.Err)
		}
	}
	fmt.Fprintln(w)
}

// PrintExtracted writes a summary of an extract run.
func PrintExtracted(w io.Writer, results []extract.Result, dryRun bool) {
	fmt.Fprintln(w)
	if dryRun {
		fmt.Fprintln(w, "=== Dry Run Summary ===")
	} else {
		fmt.Fprintln(w, "=== Summary ===")
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No libraries to extract.")
		return
	}

	var total int64
	for _, r := range results {
		total += r.Size
	}
	fmt.Fprintf(w, "Libraries:           %d\n", len(results))
	fmt.Fprintf(w, "Total bytes:         %d\n", total)
	fmt.Fprintln(w)

	verb := "Extracted"
	if dryRun {
		verb = "Would extract"
	}
	for _, r := range results {
		fmt.Fprintf(w, "  %s %s → %s\n", verb, r.Name, r.DestPath)
	}
	fmt.Fprintln(w)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
