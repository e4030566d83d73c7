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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions can read environment
// variables through the env object, e.g. source_folder = "${env.HOME}/inbox".
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	type hclConfig struct {
		SourceFolder      string   `hcl:"source_folder"`
		DestinationFolder string   `hcl:"destination_folder"`
		MaxRevisions      *int     `hcl:"max_revisions,optional"`
		BufferSize        *int     `hcl:"buffer_size,optional"`
		Concurrency       *int     `hcl:"concurrency,optional"`
		Ignore            []string `hcl:"ignore,optional"`
		Lock              *bool    `hcl:"lock,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		SourceFolder:      hclCfg.SourceFolder,
		DestinationFolder: hclCfg.DestinationFolder,
		Ignore:            hclCfg.Ignore,
		Lock:              hclCfg.Lock,
	}
	if hclCfg.MaxRevisions != nil {
		cfg.MaxRevisions = *hclCfg.MaxRevisions
	}
	if hclCfg.BufferSize != nil {
		cfg.BufferSize = *hclCfg.BufferSize
	}
	if hclCfg.Concurrency != nil {
		cfg.Concurrency = *hclCfg.Concurrency
	}

	return cfg, nil
}

// envObject exposes the process environment to HCL expressions.
func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(vars)
}
