package memograph

import "github.com/creative-resort/memograph/pkg/memograph/config"

// Settings keys recognized by OptionsFromConfig.
const (
	// Policy override lists. A present-but-empty list is an explicit
	// clear of the matching node-declared tags.
	keyIgnore          = "ignore"
	keyAlwaysRecompute = "always_recompute"
	keyDontFingerprint = "dont_fingerprint"
	keyDontStoreResult = "dont_store_result"

	// KeyResumeFrom names a prior run to resume from: a run ID or
	// "latest".
	KeyResumeFrom = "resume_from"

	keyMetrics = "metrics"
	keyTracing = "tracing"
)

// OverridesFromConfig reads the run-level policy overrides from loaded
// settings, preserving the absent-vs-empty distinction per list.
func OverridesFromConfig(cfg config.Config) Overrides {
	var ov Overrides
	if nodes, ok := cfg.NullableStringSlice(keyIgnore); ok {
		ov.Ignore = nodes
	}
	if nodes, ok := cfg.NullableStringSlice(keyAlwaysRecompute); ok {
		ov.AlwaysRecompute = nodes
	}
	if nodes, ok := cfg.NullableStringSlice(keyDontFingerprint); ok {
		ov.DontFingerprint = nodes
	}
	if nodes, ok := cfg.NullableStringSlice(keyDontStoreResult); ok {
		ov.DontStoreResult = nodes
	}
	return ov
}

// OptionsFromConfig converts loaded settings into orchestrator options.
// Contradictory override lists are rejected here, before an
// orchestrator is built.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	ov := OverridesFromConfig(cfg)
	if err := ov.Validate(); err != nil {
		return nil, err
	}
	opts := []Option{WithOverrides(ov)}
	if cfg.Has(keyMetrics) {
		opts = append(opts, WithMetrics(cfg.Bool(keyMetrics, false)))
	}
	if cfg.Has(keyTracing) {
		opts = append(opts, WithTracing(cfg.Bool(keyTracing, false)))
	}
	return opts, nil
}

// ResumeRefFromConfig reads the resume reference from loaded settings.
// Empty means no resume.
func ResumeRefFromConfig(cfg config.Config) string {
	return cfg.String(KeyResumeFrom, "")
}
