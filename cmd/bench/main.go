// bench - BSON size comparison runner
//
// For each extended JSON file given on the command line, compares:
//   - minified extended JSON bytes
//   - BSON bytes
//   - BSON stream bytes after gzip and zstd
//
// Output: CSV and markdown summary
//
// Usage:
//
//	bench [-csv results.csv] [-md results.md] file.json...
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/log"
	"github.com/LRAbbade/mongolite/stream"
)

type CaseResult struct {
	Name      string
	JSONBytes int
	BSONBytes int
	GzipBytes int
	ZstdBytes int
}

// BSONPct is the BSON size relative to minified JSON, in percent.
func (r CaseResult) BSONPct() float64 {
	return pct(r.BSONBytes, r.JSONBytes)
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100.0
}

func main() {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	csvPath := fs.String("csv", "bench_results.csv", "CSV output path, empty to skip")
	mdPath := fs.String("md", "bench_results.md", "markdown output path, empty to skip")
	log.AddFlags(fs)
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench [-csv file] [-md file] file.json...")
		os.Exit(1)
	}

	var results []CaseResult
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("skip %s: %v", path, err)
			continue
		}
		r, err := measure(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), data)
		if err != nil {
			log.Errorf("skip %s: %v", path, err)
			continue
		}
		log.With("case", r.Name).Debugf("json=%d bson=%d", r.JSONBytes, r.BSONBytes)
		results = append(results, r)
	}

	if *csvPath != "" {
		if err := writeFile(*csvPath, func(w io.Writer) { writeCSV(w, results) }); err != nil {
			log.Errorf("write CSV: %v", err)
		} else {
			log.Infof("CSV written to: %s", *csvPath)
		}
	}
	if *mdPath != "" {
		if err := writeFile(*mdPath, func(w io.Writer) { writeMarkdown(w, results) }); err != nil {
			log.Errorf("write markdown: %v", err)
		} else {
			log.Infof("Markdown written to: %s", *mdPath)
		}
	}

	t := total(results)
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Cases:       %d\n", len(results))
	fmt.Printf("JSON total:  %d bytes\n", t.JSONBytes)
	fmt.Printf("BSON total:  %d bytes (%.1f%% of JSON)\n", t.BSONBytes, t.BSONPct())
	fmt.Printf("BSON gzip:   %d bytes\n", t.GzipBytes)
	fmt.Printf("BSON zstd:   %d bytes\n", t.ZstdBytes)
}

// measure parses one document of extended JSON and sizes its encodings.
func measure(name string, data []byte) (CaseResult, error) {
	doc, err := bson.ParseJSON(string(data))
	if err != nil {
		return CaseResult{}, errors.Wrap(err, "parse")
	}
	minified, err := doc.JSON()
	if err != nil {
		return CaseResult{}, errors.Wrap(err, "render")
	}

	r := CaseResult{Name: name, JSONBytes: len(minified), BSONBytes: doc.Size()}
	if r.GzipBytes, err = compressedSize(doc, stream.Gzip); err != nil {
		return r, err
	}
	if r.ZstdBytes, err = compressedSize(doc, stream.Zstd); err != nil {
		return r, err
	}
	return r, nil
}

func compressedSize(doc *bson.Document, c stream.Compression) (int, error) {
	var buf bytes.Buffer
	w, err := stream.NewWriter(&buf, stream.WithWriterCompression(c))
	if err != nil {
		return 0, err
	}
	if err := w.WriteDocument(doc); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

func total(results []CaseResult) CaseResult {
	t := CaseResult{Name: "total"}
	for _, r := range results {
		t.JSONBytes += r.JSONBytes
		t.BSONBytes += r.BSONBytes
		t.GzipBytes += r.GzipBytes
		t.ZstdBytes += r.ZstdBytes
	}
	return t
}

func writeFile(path string, fn func(io.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	fn(f)
	return f.Close()
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,json_bytes,bson_bytes,bson_pct,gzip_bytes,zstd_bytes")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%.1f,%d,%d\n",
			r.Name, r.JSONBytes, r.BSONBytes, r.BSONPct(), r.GzipBytes, r.ZstdBytes)
	}
}

func writeMarkdown(w io.Writer, results []CaseResult) {
	t := total(results)
	fmt.Fprintf(w, "# BSON Size Comparison\n\n")
	fmt.Fprintf(w, "**Cases:** %d\n\n", len(results))

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | JSON (minified) | BSON | gzip | zstd |\n")
	fmt.Fprintf(w, "|--------|-----------------|------|------|------|\n")
	fmt.Fprintf(w, "| **Bytes** | %d | %d | %d | %d |\n\n", t.JSONBytes, t.BSONBytes, t.GzipBytes, t.ZstdBytes)

	// Cases where BSON is larger than the JSON text
	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BSONPct() > sorted[j].BSONPct()
	})

	fmt.Fprintf(w, "## Cases Where BSON is Larger\n\n")
	var worse []CaseResult
	for _, r := range sorted {
		if r.BSONBytes > r.JSONBytes {
			worse = append(worse, r)
		}
	}
	if len(worse) == 0 {
		fmt.Fprintf(w, "_None - BSON is smaller or equal in all cases._\n\n")
	} else {
		fmt.Fprintf(w, "| Case | JSON | BSON | Overhead |\n")
		fmt.Fprintf(w, "|------|------|------|----------|\n")
		for _, r := range worse {
			fmt.Fprintf(w, "| %s | %d | %d | +%d bytes |\n", r.Name, r.JSONBytes, r.BSONBytes, r.BSONBytes-r.JSONBytes)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | JSON Bytes | BSON Bytes | BSON %% | gzip | zstd |\n")
	fmt.Fprintf(w, "|------|------------|------------|--------|------|------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %d | %.1f%% | %d | %d |\n",
			r.Name, r.JSONBytes, r.BSONBytes, r.BSONPct(), r.GzipBytes, r.ZstdBytes)
	}
}
