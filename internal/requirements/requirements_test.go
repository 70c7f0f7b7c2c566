package requirements

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func collect(t *testing.T, r io.Reader) ([]string, error) {
	t.Helper()
	rd := NewReader(r)
	var specs []string
	for {
		spec, ok := rd.Next()
		if !ok {
			break
		}
		specs = append(specs, spec)
	}
	return specs, rd.Err()
}

func TestReaderNext(t *testing.T) {
	longLine := strings.Repeat("x", 70*1024)


	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "comment and blank are skipped",
			content: "# comment\n\nrequests==2.31.0\n",
			want:    []string{"requests==2.31.0"},
		},
		{
			name:    "order is preserved",
			content: "numpy\npandas>=2.0\nscipy\n",
			want:    []string{"numpy", "pandas>=2.0", "scipy"},
		},
		{
			name:    "whitespace is trimmed",
			content: "  flask  \n\t\tclick==8.1.7\r\n",
			want:    []string{"flask", "click==8.1.7"},
		},
		{
			name:    "indented comment is skipped",
			content: "   # indented comment\nrich\n",
			want:    []string{"rich"},
		},
		{
			name:    "no trailing newline",
			content: "httpx",
			want:    []string{"httpx"},
		},
		{
			name:    "only comments",
			content: "# a\n#b\n\n   \n",
			want:    nil,
		},
		{
			name:    "line longer than 64KiB",
			content: "first\n" + longLine + "\nafter\n",
			want:    []string{"first", longLine, "after"},
		},
		{
			name:    "inline hash is kept verbatim",
			content: "pkg # note\n",
			want:    []string{"pkg # note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, strings.NewReader(tt.content))
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d specifiers, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("specifier %d has length %d, want %q (length %d)", i, len(got[i]), tt.want[i][:min(len(tt.want[i]), 20)], len(tt.want[i]))
				}
			}
		})
	}
}

func TestReaderSkipped(t *testing.T) {
	r := NewReader(strings.NewReader("# header\n\nrequests\n# trailer\n"))

	spec, ok := r.Next()
	if !ok || spec != "requests" {
		t.Fatalf("Next() = %q, %v; want requests, true", spec, ok)
	}
	if _, ok := r.Next(); ok {
		t.Fatal("Next() should report end of input")
	}
	if r.Skipped() != 3 {
		t.Errorf("Skipped() = %d, want 3", r.Skipped())
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReaderErr(t *testing.T) {
	r := NewReader(failingReader{})
	if _, ok := r.Next(); ok {
		t.Fatal("Next() should fail")
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("Err() = %v, want wrapped read error", err)
	}
}

func TestOpen(t *testing.T) {
	memFs := afero.NewMemMapFs()
	if err := afero.WriteFile(memFs, "/work/requirements.txt", []byte("requests\n"), os.ModePerm); err != nil {
		t.Fatal(err)
	}

	f, err := Open(memFs, "/work/requirements.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	specs, err := collect(t, f)
	if err != nil || len(specs) != 1 || specs[0] != "requests" {
		t.Errorf("specifiers = %v, %v; want [requests]", specs, err)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "/nope/requirements.txt")
	if err == nil {
		t.Fatal("Open() should fail for a missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open() error = %v, want ErrNotExist", err)
	}
}
