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

// Package testutils holds helpers shared by package tests.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Context returns a context carrying a logger that writes to t.
func Context(t testing.TB) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

// Op is a filesystem operation a FaultFs can fail.
type Op string

const (
	OpOpen   Op = "open"   // Open and read-only OpenFile
	OpCreate Op = "create" // Create and writable OpenFile
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpStat   Op = "stat"
	OpRename Op = "rename"
)

type fault struct {
	op      Op
	pattern string
	err     error
}

// 💥 FaultFs wraps an afero.Fs and fails selected operations.
// Patterns are doublestar globs matched against the base name of the path.
type FaultFs struct {
	afero.Fs

	mu     sync.Mutex
	faults []fault
}

// NewFaultFs wraps fs.
func NewFaultFs(fs afero.Fs) *FaultFs {
	return &FaultFs{Fs: fs}
}

// Fail makes op fail with err for every base name matching pattern.
func (f *FaultFs) Fail(op Op, pattern string, err error) *FaultFs {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault{op: op, pattern: pattern, err: err})
	return f
}

func (f *FaultFs) check(op Op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := filepath.Base(name)
	for _, ft := range f.faults {
		if ft.op != op {
			continue
		}
		if ok, _ := doublestar.Match(ft.pattern, base); ok {
			return &os.PathError{Op: string(op), Path: name, Err: ft.err}
		}
	}
	return nil
}

func (f *FaultFs) wrap(file afero.File, name string) afero.File {
	return &faultFile{File: file, fs: f, name: name}
}

func (f *FaultFs) Open(name string) (afero.File, error) {
	if err := f.check(OpOpen, name); err != nil {
		return nil, err
	}
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return f.wrap(file, name), nil
}

func (f *FaultFs) Create(name string) (afero.File, error) {
	if err := f.check(OpCreate, name); err != nil {
		return nil, err
	}
	file, err := f.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return f.wrap(file, name), nil
}

func (f *FaultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	op := OpOpen
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND) != 0 {
		op = OpCreate
	}
	if err := f.check(op, name); err != nil {
		return nil, err
	}
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f.wrap(file, name), nil
}

func (f *FaultFs) Stat(name string) (os.FileInfo, error) {
	if err := f.check(OpStat, name); err != nil {
		return nil, err
	}
	return f.Fs.Stat(name)
}

func (f *FaultFs) Rename(oldname, newname string) error {
	if err := f.check(OpRename, newname); err != nil {
		return err
	}
	return f.Fs.Rename(oldname, newname)
}

type faultFile struct {
	afero.File
	fs   *FaultFs
	name string
}

func (f *faultFile) Read(p []byte) (int, error) {
	if err := f.fs.check(OpRead, f.name); err != nil {
		return 0, err
	}
	return f.File.Read(p)
}

func (f *faultFile) Write(p []byte) (int, error) {
	if err := f.fs.check(OpWrite, f.name); err != nil {
		return 0, err
	}
	return f.File.Write(p)
}

func (f *faultFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}
