package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/stream"
)

// openInput returns the named file, or stdin for "" and "-".
func (a *app) openInput(ctx *cli.Context) (io.Reader, string, func(), error) {
	name := ctx.Args().First()
	if name == "" || name == "-" {
		return ctx.App.Reader, "stdin", func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, name, nil, errors.Wrap(err, "open input")
	}
	return f, name, func() { f.Close() }, nil
}

// eachDocument calls fn for every document of the input stream.
func (a *app) eachDocument(ctx *cli.Context, fn func(n int, doc *bson.Document) error) error {
	in, name, done, err := a.openInput(ctx)
	if err != nil {
		return err
	}
	defer done()

	logger := a.logger.With("input", name)
	opts := append(a.cfg.ReaderOptions(), stream.WithLogger(logger))
	r, err := stream.NewReader(in, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		doc, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := fn(r.Count()-1, doc); err != nil {
			return err
		}
	}
	logger.Infof("processed %d documents (%d bytes)", r.Count(), r.Offset())
	return nil
}

// toJSON: BSON stream -> one extended JSON document per line
func (a *app) toJSON(ctx *cli.Context) error {
	opts := bson.JSONOptions{Indent: ctx.String("indent")}
	return a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		text, err := doc.JSONWithOptions(opts)
		if err != nil {
			return errors.Wrapf(err, "document %d", n)
		}
		fmt.Fprintln(ctx.App.Writer, text)
		return nil
	})
}

// fromJSON: concatenated extended JSON documents -> BSON stream
func (a *app) fromJSON(ctx *cli.Context) error {
	in, name, done, err := a.openInput(ctx)
	if err != nil {
		return err
	}
	defer done()

	out := ctx.App.Writer
	if path := ctx.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer f.Close()
		out = f
	}

	comp, err := stream.ParseCompression(a.cfg.Stream.Compression)
	if err != nil {
		return err
	}
	logger := a.logger.With("input", name)
	w, err := stream.NewWriter(out,
		stream.WithWriterCompression(comp),
		stream.WithEncodeOptions(a.cfg.EncodeOptions()),
		stream.WithWriterLogger(logger),
	)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(in)
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "read JSON document %d", w.Count())
		}
		doc, err := bson.ParseJSON(string(raw))
		if err != nil {
			return errors.Wrapf(err, "document %d", w.Count())
		}
		if err := w.WriteDocument(doc); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Infof("wrote %d documents", w.Count())
	return nil
}

// tree: print the decoded tree of each document
func (a *app) tree(ctx *cli.Context) error {
	dec := bson.NewDecoder(a.cfg.DecodeOptions())
	return a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		v, err := dec.Decode(doc.Raw())
		if err != nil {
			return errors.Wrapf(err, "document %d", n)
		}
		fmt.Fprintf(ctx.App.Writer, "%d: %s\n", n, v)
		return nil
	})
}

// inspect: table of top-level elements
func (a *app) inspect(ctx *cli.Context) error {
	limit := ctx.Int("limit")
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"doc", "key", "type", "offset", "size"})

	err := a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		if limit > 0 && n >= limit {
			return nil
		}
		it, err := doc.Iterator(bson.WithMaxDepth(a.cfg.Decode.MaxDepth))
		if err != nil {
			return errors.Wrapf(err, "document %d", n)
		}
		for it.Next() {
			table.Append([]string{
				strconv.Itoa(n),
				it.Key(),
				it.Type().String(),
				strconv.Itoa(it.Offset()),
				strconv.Itoa(len(it.Value())),
			})
		}
		return errors.Wrapf(it.Err(), "document %d", n)
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

// docStats accumulates per-stream totals for stat.
type docStats struct {
	docs     int
	bytes    int
	minSize  int
	maxSize  int
	maxDepth int
	types    map[bson.Type]int
}

func (s *docStats) walk(it *bson.Iterator) error {
	if it.Depth() > s.maxDepth {
		s.maxDepth = it.Depth()
	}
	for it.Next() {
		s.types[it.Type()]++
		if t := it.Type(); t == bson.TypeDocument || t == bson.TypeArray {
			child, err := it.Recurse()
			if err != nil {
				return err
			}
			if err := s.walk(child); err != nil {
				return err
			}
		}
	}
	return it.Err()
}

// stat: document counts, sizes and element type histogram
func (a *app) stat(ctx *cli.Context) error {
	s := &docStats{types: make(map[bson.Type]int)}
	err := a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		size := doc.Size()
		if s.docs == 0 || size < s.minSize {
			s.minSize = size
		}
		if size > s.maxSize {
			s.maxSize = size
		}
		s.docs++
		s.bytes += size

		it, err := doc.Iterator(bson.WithMaxDepth(a.cfg.Decode.MaxDepth))
		if err != nil {
			return errors.Wrapf(err, "document %d", n)
		}
		return errors.Wrapf(s.walk(it), "document %d", n)
	})
	if err != nil {
		return err
	}

	summary := tablewriter.NewWriter(ctx.App.Writer)
	summary.SetHeader([]string{"documents", "bytes", "min size", "max size", "max depth"})
	summary.Append([]string{
		strconv.Itoa(s.docs),
		strconv.Itoa(s.bytes),
		strconv.Itoa(s.minSize),
		strconv.Itoa(s.maxSize),
		strconv.Itoa(s.maxDepth),
	})
	summary.Render()

	types := make([]bson.Type, 0, len(s.types))
	for t := range s.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"type", "count"})
	for _, t := range types {
		table.Append([]string{t.String(), strconv.Itoa(s.types[t])})
	}
	table.Render()
	return nil
}

// validate: full validation regardless of the configured reader setting
func (a *app) validate(ctx *cli.Context) error {
	a.cfg.Stream.Validate = true
	count := 0
	if err := a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		count++
		return nil
	}); err != nil {
		return errors.Wrap(err, "invalid")
	}
	fmt.Fprintf(ctx.App.Writer, "ok: %d documents\n", count)
	return nil
}

// digest: SHA-256 of each document's bytes
func (a *app) digest(ctx *cli.Context) error {
	return a.eachDocument(ctx, func(n int, doc *bson.Document) error {
		fmt.Fprintf(ctx.App.Writer, "%d %s\n", n, stream.HashToHex(stream.Digest(doc)))
		return nil
	})
}
