// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package manifest reads the rows of a copy manifest.
//
// A manifest is a comma separated text file. The first line is a header and is
// discarded. Each data row is `folder,createRevision`. Rows that do not have
// exactly two fields are skipped; a bad createRevision value stops the reader.
package manifest

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const maxLineSize = 1 << 20

var (
	ErrInvalidBooleanValue = errors.Base("invalid createRevision value")
	ErrInvalidFolderName   = errors.Base("invalid destination folder name")
)

// 📄 Row is one copy instruction.
type Row struct {
	Folder         string
	CreateRevision bool
	Line           int // 1-based line number in the manifest
}

// Reader streams rows out of a manifest.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	header  *string
	err     error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &Reader{scanner: s}
}

// 📂 Open opens the manifest at path on fs. The caller closes the returned file.
func Open(fs afero.Fs, path string) (*Reader, io.Closer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, errors.Errorf("opening manifest: %w", err)
	}
	return NewReader(f), f, nil
}

// Header returns the discarded header line, once Next has been called.
func (r *Reader) Header() (string, bool) {
	if r.header == nil {
		return "", false
	}
	return *r.header, true
}

// ➡️ Next returns the next valid row, or io.EOF when the manifest is exhausted.
// After an error every later call returns the same error.
func (r *Reader) Next() (Row, error) {
	if r.err != nil {
		return Row{}, r.err
	}

	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()

		if r.line == 1 {
			r.header = &text
			continue
		}

		fields := splitFields(text)
		if len(fields) != 2 {
			continue
		}

		row, err := parseRow(fields, r.line)
		if err != nil {
			r.err = err
			return Row{}, err
		}
		return row, nil
	}

	if err := r.scanner.Err(); err != nil {
		r.err = errors.Errorf("reading manifest: %w", err)
		return Row{}, r.err
	}
	r.err = io.EOF
	return Row{}, io.EOF
}

// splitFields splits on ',' and drops trailing empty fields, so "a," has one field.
func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func parseRow(fields []string, line int) (Row, error) {
	folder := strings.TrimSpace(fields[0])
	value := strings.TrimSpace(fields[1])

	var create bool
	switch {
	case strings.EqualFold(value, "true"):
		create = true
	case strings.EqualFold(value, "false"):
		create = false
	default:
		return Row{}, errors.Errorf("%w %q on line %d", ErrInvalidBooleanValue, value, line)
	}

	if err := ValidateFolder(folder); err != nil {
		return Row{}, errors.Errorf("line %d: %w", line, err)
	}

	return Row{Folder: folder, CreateRevision: create, Line: line}, nil
}

// ValidateFolder rejects names that do not denote a direct child of the destination root.
func ValidateFolder(folder string) error {
	switch {
	case folder == "", folder == ".", folder == "..":
		return errors.Errorf("%w %q", ErrInvalidFolderName, folder)
	case strings.ContainsAny(folder, `/\`), strings.ContainsRune(folder, filepath.Separator):
		return errors.Errorf("%w %q: must not contain a path separator", ErrInvalidFolderName, folder)
	}
	return nil
}
