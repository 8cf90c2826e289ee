package exporters

import (
	"io"
)

// delimitedWriter writes records as fields joined by a single byte and
// terminated by '\n'. Fields are written verbatim, without quoting.
type delimitedWriter struct {
	w     io.Writer
	delim byte
	line  []byte
}

func newDelimitedWriter(w io.Writer, delim byte) *delimitedWriter {
	return &delimitedWriter{w: w, delim: delim, line: make([]byte, 0, 512)}
}

func (d *delimitedWriter) WriteRecord(fields []string) error {
	d.line = d.line[:0]
	for i, f := range fields {
		if i > 0 {
			d.line = append(d.line, d.delim)
		}
		d.line = append(d.line, f...)
	}
	d.line = append(d.line, '\n')
	_, err := d.w.Write(d.line)
	return err
}
