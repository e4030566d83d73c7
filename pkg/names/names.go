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

// Package names holds the filename rules shared by every stage of a run:
// how a name splits into base and extension, and which extensions are reserved.
package names

import "strings"

// 🏷️ Reserved extensions
const (
	TriggerExt  = ".trg"
	ManifestExt = ".csv"
	ErrorExt    = ".err"
)

// ✂️ Split splits name on its last '.' into base and extension.
// The extension keeps its leading dot. A name without a dot has an empty extension.
func Split(name string) (base, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// Base returns name without its final extension.
func Base(name string) string {
	base, _ := Split(name)
	return base
}

// Ext returns the final extension of name, including the dot.
func Ext(name string) string {
	_, ext := Split(name)
	return ext
}

// IsReserved reports whether ext is one of the trigger, manifest or error extensions.
func IsReserved(ext string) bool {
	switch ext {
	case TriggerExt, ManifestExt, ErrorExt:
		return true
	}
	return false
}

// 📛 ErrorMarker returns the name of the error marker file for a payload name.
func ErrorMarker(payload string) string {
	return Base(payload) + ErrorExt
}

// ManifestFor returns the manifest name paired with a trigger base name.
func ManifestFor(base string) string {
	return base + ManifestExt
}
