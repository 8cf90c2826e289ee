package output

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type streamCodec struct {
	ext  string
	wrap func(io.Writer) (io.WriteCloser, error)
}

// Single-stream compressors. zip needs an entry name and is handled apart.
var streamCodecs = map[string]streamCodec{
	GZIP: {".gz", func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }},
	ZSTD: {".zst", func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) }},
	LZ4:  {".lz4", func(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil }},
}

func extensionOf(compression string) (string, bool) {
	switch compression {
	case None:
		return "", true
	case ZIP:
		return ".zip", true
	}
	sc, ok := streamCodecs[compression]
	return sc.ext, ok
}

// newEncoder wraps file with the compressor for compression. For "none" the
// file itself is returned.
func newEncoder(compression string, file *os.File, originalPath string) (io.WriteCloser, error) {
	switch compression {
	case None:
		return file, nil
	case ZIP:
		return newZipEntry(file, originalPath)
	}

	sc := streamCodecs[compression]
	enc, err := sc.wrap(file)
	if err != nil {
		return nil, fmt.Errorf("error creating %s writer: %w", compression, err)
	}
	return enc, nil
}

// zipEntry writes a single-entry archive named after the uncompressed file.
type zipEntry struct {
	io.Writer
	zw *zip.Writer
}

func (z *zipEntry) Close() error {
	return z.zw.Close()
}

func newZipEntry(file *os.File, originalPath string) (io.WriteCloser, error) {
	zw := zip.NewWriter(file)
	name := zipEntryName(originalPath)
	logger.Debug("Creating zip entry: %s", name)
	w, err := zw.Create(name)
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("error creating zip entry: %w", err)
	}
	return &zipEntry{Writer: w, zw: zw}, nil
}

func zipEntryName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".zip")
	if name == "" || name == "." {
		name = "export.csv"
	}
	return name
}
