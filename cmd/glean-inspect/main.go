// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/glean/lib/codec"
	"github.com/bureau-foundation/glean/lib/config"
	"github.com/bureau-foundation/glean/lib/database"
	"github.com/bureau-foundation/glean/lib/metric"
	"github.com/bureau-foundation/glean/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath string
	dataPath   string

	// Exactly one of ping and lifetime is set.
	ping     string
	clear    bool
	lifetime string
	from     string

	format   string
	output   string
	compress bool
}

// listedEntry is one row of a --lifetime listing.
type listedEntry struct {
	Key   string `json:"key" cbor:"key"`
	Kind  string `json:"kind" cbor:"kind"`
	Value any    `json:"value" cbor:"value"`
}

func run(args []string, stdout, stderr io.Writer) error {
	// Handle --version before flag parsing to match other binaries.
	if slices.Contains(args, "--version") {
		version.Print(stdout, "glean-inspect")
		return nil
	}

	parsed, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	dataPath, cfg, err := resolveDataPath(parsed)
	if err != nil {
		return err
	}

	logLevel := slog.LevelWarn
	poolSize := 0
	if cfg != nil {
		logLevel = cfg.SlogLevel()
		poolSize = cfg.Storage.PoolSize
	}
	logger := newLogger(stderr, logLevel).With("data_path", dataPath)

	store, err := database.Open(database.Config{
		Directory: dataPath,
		PoolSize:  poolSize,
		Logger:    logger,
	})
	if errors.Is(err, database.ErrLocked) {
		return fmt.Errorf("%w; close the application using %s and retry", err, dataPath)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	var document any
	if parsed.ping != "" {
		snapshot, err := store.Snapshot(parsed.ping, parsed.clear)
		if err != nil {
			return err
		}
		if parsed.clear {
			logger.Info("ping store cleared", "ping", parsed.ping)
		}
		document = snapshot
	} else {
		lifetime, err := metric.ParseLifetime(parsed.lifetime)
		if err != nil {
			return err
		}
		entries := []listedEntry{}
		err = store.IterStoreFrom(lifetime, parsed.from, func(key []byte, value metric.Metric) {
			entries = append(entries, listedEntry{
				Key:   string(key),
				Kind:  value.Kind().String(),
				Value: value.JSONValue(),
			})
		})
		if err != nil {
			return err
		}
		document = entries
	}

	if failures := store.DecodeFailures(); failures > 0 {
		logger.Warn("undecodable entries skipped", "count", failures)
	}

	data, err := encode(document, parsed.format)
	if err != nil {
		return err
	}
	if parsed.compress {
		data, err = compressZstd(data)
		if err != nil {
			return err
		}
	}
	return writeOutput(data, parsed.output, stdout)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var parsed options

	flagSet := pflag.NewFlagSet("glean-inspect", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&parsed.configPath, "config", "", "configuration file (default: $GLEAN_CONFIG)")
	flagSet.StringVar(&parsed.dataPath, "data-path", "", "data directory (overrides the configuration)")
	flagSet.StringVar(&parsed.ping, "ping", "", "print the snapshot of this ping")
	flagSet.BoolVar(&parsed.clear, "clear", false, "clear the ping's ping-lifetime values after reading (with --ping)")
	flagSet.StringVar(&parsed.lifetime, "lifetime", "", "list the entries of this lifetime: ping, application, user")
	flagSet.StringVar(&parsed.from, "from", "", "first storage key to list (with --lifetime)")
	flagSet.StringVar(&parsed.format, "format", "json", "output format: json or cbor")
	flagSet.StringVarP(&parsed.output, "output", "o", "", "write to this file instead of stdout")
	flagSet.BoolVar(&parsed.compress, "compress", false, "zstd-compress the output")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  glean-inspect [flags] (--ping NAME [--clear] | --lifetime LIFETIME [--from KEY])\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	switch {
	case parsed.ping == "" && parsed.lifetime == "":
		return options{}, fmt.Errorf("one of --ping or --lifetime is required")
	case parsed.ping != "" && parsed.lifetime != "":
		return options{}, fmt.Errorf("--ping and --lifetime are mutually exclusive")
	case parsed.clear && parsed.ping == "":
		return options{}, fmt.Errorf("--clear requires --ping")
	case parsed.from != "" && parsed.lifetime == "":
		return options{}, fmt.Errorf("--from requires --lifetime")
	}
	if parsed.format != "json" && parsed.format != "cbor" {
		return options{}, fmt.Errorf("--format must be json or cbor, got %q", parsed.format)
	}
	return parsed, nil
}

// resolveDataPath picks the data directory. The configuration is
// loaded when one is named, even if --data-path overrides its path, so
// that its logging and storage settings apply.
func resolveDataPath(parsed options) (string, *config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case parsed.configPath != "":
		cfg, err = config.LoadFile(parsed.configPath)
	case os.Getenv("GLEAN_CONFIG") != "":
		cfg, err = config.Load()
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading configuration: %w", err)
	}

	if parsed.dataPath != "" {
		return parsed.dataPath, cfg, nil
	}
	if cfg == nil {
		return "", nil, fmt.Errorf("no data directory: pass --data-path, --config, or set GLEAN_CONFIG")
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg.DataPath, cfg, nil
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func encode(document any, format string) ([]byte, error) {
	switch format {
	case "cbor":
		var buffer bytes.Buffer
		if err := codec.NewEncoder(&buffer).Encode(document); err != nil {
			return nil, fmt.Errorf("encoding cbor: %w", err)
		}
		return buffer.Bytes(), nil
	default:
		data, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func writeOutput(data []byte, path string, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
