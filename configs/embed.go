package configs

import "embed"

// SequenceDefaults contains the shipped action sequence YAML files.
//
//go:embed sequences/*.yaml
var SequenceDefaults embed.FS
