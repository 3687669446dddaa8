// Package config loads bsonconv settings from a YAML file. Command-line
// flags override whatever the file sets.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/LRAbbade/mongolite/bson"
	"github.com/LRAbbade/mongolite/stream"
)

// Config is the top-level configuration document.
type Config struct {
	Decode DecodeConfig `yaml:"decode"`
	Stream StreamConfig `yaml:"stream"`
	Log    LogConfig    `yaml:"log"`
}

// DecodeConfig controls conversion between bytes and trees.
type DecodeConfig struct {
	MaxDepth   int  `yaml:"max_depth"`
	ExactInt64 bool `yaml:"exact_int64"`
}

// StreamConfig controls how document streams are read and written.
type StreamConfig struct {
	Compression     string `yaml:"compression"`
	MaxDocumentSize int    `yaml:"max_document_size"`
	Validate        bool   `yaml:"validate"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Decode: DecodeConfig{MaxDepth: bson.DefaultMaxDepth},
		Stream: StreamConfig{MaxDocumentSize: stream.MaxDocumentSize, Validate: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, errors.New("config: missing config file")
	}
	ba, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "config: read")
	}
	return Parse(ba)
}

// Parse decodes YAML over the defaults and checks the result.
func Parse(ba []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(ba, &c); err != nil {
		return c, errors.Wrap(err, "config: parse")
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Decode.MaxDepth <= 0 {
		return errors.Errorf("config: decode.max_depth must be positive, got %d", c.Decode.MaxDepth)
	}
	if c.Stream.MaxDocumentSize < bson.EmptyDocumentLength {
		return errors.Errorf("config: stream.max_document_size must be at least %d, got %d",
			bson.EmptyDocumentLength, c.Stream.MaxDocumentSize)
	}
	if _, err := stream.ParseCompression(c.Stream.Compression); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// DecodeOptions returns the bson decode options described by c.
func (c Config) DecodeOptions() bson.DecodeOptions {
	return bson.DecodeOptions{MaxDepth: c.Decode.MaxDepth, ExactInt64: c.Decode.ExactInt64}
}

// EncodeOptions returns the bson encode options described by c.
func (c Config) EncodeOptions() bson.EncodeOptions {
	return bson.EncodeOptions{MaxDepth: c.Decode.MaxDepth}
}

// ReaderOptions returns stream reader options. Without an explicit
// compression the reader detects it from the stream header.
func (c Config) ReaderOptions() []stream.ReaderOption {
	opts := []stream.ReaderOption{stream.WithMaxDocumentSize(c.Stream.MaxDocumentSize)}
	if c.Stream.Compression != "" {
		comp, _ := stream.ParseCompression(c.Stream.Compression)
		opts = append(opts, stream.WithCompression(comp))
	}
	if c.Stream.Validate {
		opts = append(opts, stream.WithValidation(bson.WithMaxDepth(c.Decode.MaxDepth)))
	}
	return opts
}
