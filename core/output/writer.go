package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fbz-tec/dbxport/internal/logger"
)

const (
	None = "none"
	GZIP = "gzip"
	ZIP  = "zip"
	ZSTD = "zstd"
	LZ4  = "lz4"
)

// 256KB keeps syscalls rare on multi-million row exports.
const bufferSize = 256 * 1024

// OutputConfig holds configuration for output file creation.
type OutputConfig struct {
	Path        string
	Compression string
}

// Compressions lists the accepted compression names.
func Compressions() []string {
	return []string{None, GZIP, ZIP, ZSTD, LZ4}
}

// IsSupported reports whether name is an accepted compression (case-insensitive).
func IsSupported(name string) bool {
	_, ok := extensionOf(normalize(name))
	return ok
}

// ResolvePath returns the file name actually written for path under the
// given compression: data.csv becomes data.csv.gz, data.csv.zst, data.csv.lz4
// or data.zip. A path already carrying the extension is left alone.
func ResolvePath(path, compression string) string {
	c := normalize(compression)
	ext, _ := extensionOf(c)
	if ext == "" {
		return path
	}
	if c == ZIP {
		return fixExtension(path, ext)
	}
	if !strings.HasSuffix(strings.ToLower(path), ext) {
		path += ext
	}
	return path
}

// CreateWriter creates the output file and returns a buffered writer over it,
// compressed when requested, together with the resolved file path.
// Supports various compression formats: none, gzip, zip, zstd, lz4.
// Returns an error if the compression type is unsupported or file creation fails.
func CreateWriter(cfg OutputConfig) (io.WriteCloser, string, error) {
	c := normalize(cfg.Compression)
	if !IsSupported(c) {
		return nil, "", fmt.Errorf("unsupported compression type %q", cfg.Compression)
	}

	start := time.Now()
	path := ResolvePath(cfg.Path, c)
	logger.Debug("Creating output file: %s (compression: %s)", path, c)

	file, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("error creating file: %w", err)
	}

	enc, err := newEncoder(c, file, cfg.Path)
	if err != nil {
		file.Close()
		return nil, "", err
	}

	return &fileWriter{
		Writer: bufio.NewWriterSize(enc, bufferSize),
		enc:    enc,
		file:   file,
		path:   path,
		start:  start,
	}, path, nil
}

// fileWriter layers a buffer over an optional compressor over the file.
// Close flushes and closes each layer top-down, even after a failure.
type fileWriter struct {
	*bufio.Writer
	enc   io.WriteCloser
	file  *os.File
	path  string
	start time.Time
}

func (w *fileWriter) Close() error {
	var err error
	if ferr := w.Writer.Flush(); ferr != nil {
		err = fmt.Errorf("error flushing buffer: %w", ferr)
	}
	if w.enc != w.file {
		if cerr := w.enc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error finalizing compression: %w", cerr)
		}
	}
	if cerr := w.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("error closing file: %w", cerr)
	}
	logger.Debug("Output file %s closed in %v", w.path, time.Since(w.start))
	return err
}

func normalize(name string) string {
	c := strings.ToLower(strings.TrimSpace(name))
	if c == "" {
		return None
	}
	return c
}

func fixExtension(path, extension string) string {
	ext := filepath.Ext(path)

	if strings.ToLower(ext) != extension {
		path = path[:len(path)-len(ext)] + extension
	}
	return path
}
