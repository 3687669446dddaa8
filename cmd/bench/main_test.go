package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestMeasure(t *testing.T) {
	r, err := measure("small", []byte(`{ "a" : 1, "b" : "x" }`))
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	// {"a":1,"b":"x"}
	if r.JSONBytes != 15 {
		t.Errorf("JSONBytes = %d, want 15", r.JSONBytes)
	}
	// 4 + (1+2+4) + (1+2+4+2) + 1
	if r.BSONBytes != 21 {
		t.Errorf("BSONBytes = %d, want 21", r.BSONBytes)
	}
	if r.GzipBytes == 0 || r.ZstdBytes == 0 {
		t.Errorf("compressed sizes missing: %+v", r)
	}

	if _, err := measure("bad", []byte(`[1,2]`)); err == nil {
		t.Errorf("expected error for top-level array")
	}
}

func TestReports(t *testing.T) {
	results := []CaseResult{
		{Name: "a", JSONBytes: 10, BSONBytes: 20, GzipBytes: 30, ZstdBytes: 25},
		{Name: "b", JSONBytes: 40, BSONBytes: 20, GzipBytes: 35, ZstdBytes: 30},
	}

	var csv bytes.Buffer
	writeCSV(&csv, results)
	want := "name,json_bytes,bson_bytes,bson_pct,gzip_bytes,zstd_bytes\n" +
		"a,10,20,200.0,30,25\n" +
		"b,40,20,50.0,35,30\n"
	if csv.String() != want {
		t.Errorf("CSV:\n%s\nwant:\n%s", csv.String(), want)
	}

	var md bytes.Buffer
	writeMarkdown(&md, results)
	got := md.String()
	for _, want := range []string{"| **Bytes** | 50 | 40 | 65 | 55 |", "| a | 10 | 20 | +10 bytes |"} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}
