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

/*
Package config loads and validates trgcopy configuration.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

The parser is picked by file extension. Parsing only decodes; Validate
checks required fields and fills in defaults, so flag overrides applied by
the CLI go through the same validation as file values.

🔍 Example:

	cfg, err := config.Load(ctx, "trgcopy.yaml")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("invalid config: %w", err)
	}

A minimal YAML file:

	source_folder: /data/inbox
	destination_folder: /data/outbox
	ignore:
	  - "*.tmp"
*/
package config
