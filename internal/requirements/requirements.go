// Package requirements reads package specifiers from a requirements listing.
//
// The format is deliberately minimal: one specifier per line, blank lines and
// lines whose first non-whitespace character is '#' are ignored. Continuation
// lines, includes and options are not interpreted.
package requirements

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const commentMarker = "#"

// Reader yields specifiers one at a time, in file order. Lines have no
// length limit.
type Reader struct {
	br      *bufio.Reader
	err     error
	done    bool
	skipped int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the next specifier. The second return value is false at end
// of input or on a read error; check Err afterwards.
func (r *Reader) Next() (string, bool) {
	for !r.done {
		line, err := r.br.ReadString('\n')
		if err != nil {
			r.done = true
			if err != io.EOF {
				r.err = err
				return "", false
			}
			if line == "" {
				break
			}
		}
		spec, ok := Specifier(line)
		if !ok {
			r.skipped++
			continue
		}
		return spec, true
	}
	return "", false
}

// Err returns the first non-EOF read error.
func (r *Reader) Err() error {
	if r.err != nil {
		return fmt.Errorf("reading requirements: %w", r.err)
	}
	return nil
}

// Skipped returns how many blank or comment lines have been ignored so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Specifier trims line and reports whether it names a package.
func Specifier(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, commentMarker) {
		return "", false
	}
	return trimmed, true
}

// Open opens the requirements file at path on fs.
func Open(fs afero.Fs, path string) (afero.File, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	return f, nil
}
