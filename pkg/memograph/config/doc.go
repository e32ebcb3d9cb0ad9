/*
Package config provides type-safe extraction of engine settings from
map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that
handle missing keys and type mismatches gracefully by returning default
values. This is how run settings (policy overrides, resume references,
observability toggles) loaded from YAML/JSON reach the engine without
verbose type assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "resume_from": "latest",
	    "metrics":     true,
	    "ignore":      []string{"fetch_timestamp"},
	})

	ref := cfg.String("resume_from", "") // "latest"
	metrics := cfg.Bool("metrics", false) // true

# Absent vs Empty Lists

Policy override lists distinguish "not specified" from "explicitly
empty": an empty list clears node-declared tags for the run, while an
absent key leaves them in force. NullableStringSlice preserves that
distinction:

	nodes, ok := cfg.NullableStringSlice("ignore")
	// ok == false: key absent, overrides unspecified
	// ok == true, len(nodes) == 0: explicit clear

# File Loading

Load settings from YAML or JSON files:

	cfg, err := config.FromFile("memograph.yaml")
	if err != nil {
	    log.Fatal(err)
	}

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
