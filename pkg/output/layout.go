// Package output owns the on-disk layout of extracted data: a json/ and a
// csv/ tree under one root, one subdirectory per entity, and
// <timestamp>_<descriptor> file names.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimestampFormat renders as YYYYMMDD_HHMMSS.
const TimestampFormat = "20060102_150405"

// DefaultRoot is the output directory used when none is configured.
const DefaultRoot = "extracted_data"

const (
	jsonDir = "json"
	csvDir  = "csv"
)

// Timestamp formats t for file names.
func Timestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// FileName joins a timestamp and descriptor into a base name without extension.
func FileName(timestamp, descriptor string) string {
	return timestamp + "_" + descriptor
}

// Layout writes files below Root.
type Layout struct {
	Root   string
	logger zerolog.Logger
}

// NewLayout creates a layout rooted at root. Nothing touches the disk until Init.
func NewLayout(root string) *Layout {
	if root == "" {
		root = DefaultRoot
	}
	return &Layout{
		Root:   root,
		logger: log.With().Str("component", "output").Logger(),
	}
}

// Init creates the root and its json/ and csv/ subtrees.
func (l *Layout) Init() error {
	for _, dir := range []string{l.Root, l.JSONDir(), l.CSVDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	abs, err := filepath.Abs(l.Root)
	if err != nil {
		abs = l.Root
	}
	l.logger.Info().Str("dir", abs).Msg("Data will be saved to output directory")
	return nil
}

// JSONDir returns the json/ subtree.
func (l *Layout) JSONDir() string {
	return filepath.Join(l.Root, jsonDir)
}

// CSVDir returns the csv/ subtree.
func (l *Layout) CSVDir() string {
	return filepath.Join(l.Root, csvDir)
}

// WriteJSON writes v as 2-space indented JSON to json/<subdir>/<name>.json.
func (l *Layout) WriteJSON(subdir, name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(l.JSONDir(), subdir, name+".json")
	if err := writeFile(path, bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		return "", err
	}
	l.logger.Info().Str("file", path).Msg("Saved JSON")
	return path, nil
}

// WriteCSV writes records to csv/<subdir>/<name>.csv. An empty record set
// writes nothing and returns an empty path.
func (l *Layout) WriteCSV(subdir, name string, records []client.Record) (string, error) {
	if len(records) == 0 {
		l.logger.Warn().Str("name", name).Msg("No data to save")
		return "", nil
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(l.CSVDir(), subdir, name+".csv")
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	l.logger.Info().Str("file", path).Int("records", len(records)).Msg("Saved CSV")
	return path, nil
}

// WriteText writes raw text to <Root>/<subdir>/<name>, outside the json/
// and csv/ trees.
func (l *Layout) WriteText(subdir, name, text string) (string, error) {
	path := filepath.Join(l.Root, subdir, name)
	if err := writeFile(path, []byte(text)); err != nil {
		return "", err
	}
	l.logger.Info().Str("file", path).Msg("Saved file")
	return path, nil
}

// WriteRawJSON re-indents an already encoded JSON document and writes it to
// <Root>/<subdir>/<name>.
func (l *Layout) WriteRawJSON(subdir, name string, raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent %s: %w", name, err)
	}
	return l.WriteText(subdir, name, buf.String())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
