// bsonconv - BSON document stream converter
//
// Usage:
//
//	bsonconv to-json [file]     Print each document of a BSON stream as extended JSON
//	bsonconv from-json [file]   Encode extended JSON documents into a BSON stream
//	bsonconv tree [file]        Print the decoded tree of each document
//	bsonconv inspect [file]     List the elements of each document
//	bsonconv stat [file]        Summarise a BSON stream
//	bsonconv validate [file]    Fully validate every document
//	bsonconv digest [file]      Print the SHA-256 of every document
//	bsonconv version            Print version info
//
// BSON input may be gzip or zstd compressed; the wrapper is detected from the
// stream header. If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/config"
	"github.com/LRAbbade/mongolite/log"
	"github.com/LRAbbade/mongolite/stream"
)

const libVersion = "0.1.0"

// app carries the settings resolved from the config file and global flags.
type app struct {
	cfg    config.Config
	in     io.Reader
	out    io.Writer
	logger log.Logger
}

func main() {
	a := &app{in: os.Stdin, out: os.Stdout, logger: log.Base()}
	if err := a.cli().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bsonconv: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) cli() *cli.App {
	c := cli.NewApp()
	c.Name = "bsonconv"
	c.Usage = "convert and inspect BSON document streams"
	c.Version = libVersion
	c.HideVersion = true
	c.Reader = a.in
	c.Writer = a.out
	c.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{"BSONCONV_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn or error",
		},
		&cli.IntFlag{
			Name:  "max-depth",
			Usage: "maximum nesting depth of documents and arrays",
		},
		&cli.BoolFlag{
			Name:  "exact-int64",
			Usage: "keep int64 values exact instead of widening them to doubles",
		},
		&cli.StringFlag{
			Name:  "compression",
			Usage: "stream compression: none, gzip or zstd (default: detect on read, none on write)",
		},
		&cli.BoolFlag{
			Name:  "no-validate",
			Usage: "only check document framing while reading",
		},
	}
	c.Before = a.configure
	c.Commands = []*cli.Command{
		{
			Name:      "to-json",
			Usage:     "Print each document of a BSON stream as extended JSON",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "indent", Usage: "indent output with this string"},
			},
			Action: a.toJSON,
		},
		{
			Name:      "from-json",
			Usage:     "Encode extended JSON documents into a BSON stream",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to this file instead of stdout"},
			},
			Action: a.fromJSON,
		},
		{
			Name:      "tree",
			Usage:     "Print the decoded tree of each document",
			ArgsUsage: "[file]",
			Action:    a.tree,
		},
		{
			Name:      "inspect",
			Usage:     "List the top-level elements of each document",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 10, Usage: "number of documents to inspect, 0 for all"},
			},
			Action: a.inspect,
		},
		{
			Name:      "stat",
			Usage:     "Summarise the documents and element types of a stream",
			ArgsUsage: "[file]",
			Action:    a.stat,
		},
		{
			Name:      "validate",
			Usage:     "Fully validate every document",
			ArgsUsage: "[file]",
			Action:    a.validate,
		},
		{
			Name:      "digest",
			Usage:     "Print the SHA-256 of every document",
			ArgsUsage: "[file]",
			Action:    a.digest,
		},
		{
			Name:  "version",
			Usage: "Print version info",
			Action: func(ctx *cli.Context) error {
				fmt.Fprintf(ctx.App.Writer, "bsonconv %s (max depth %d, max document %d bytes)\n",
					libVersion, bson.DefaultMaxDepth, stream.MaxDocumentSize)
				return nil
			},
		},
	}
	return c
}

// configure loads the config file and applies global flag overrides.
func (a *app) configure(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if ctx.IsSet("log-level") {
		cfg.Log.Level = ctx.String("log-level")
	}
	if ctx.IsSet("max-depth") {
		cfg.Decode.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("exact-int64") {
		cfg.Decode.ExactInt64 = ctx.Bool("exact-int64")
	}
	if ctx.IsSet("compression") {
		cfg.Stream.Compression = ctx.String("compression")
	}
	if ctx.Bool("no-validate") {
		cfg.Stream.Validate = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
