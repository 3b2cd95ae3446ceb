// Package masking implements the ingress/egress redaction pipeline
// (SPEC_FULL §4.11): a single pass over captured terminal text that
// resolves a configured set of regex pattern groups plus code-aware
// maskers and returns both the redacted text and the resulting redaction
// tier. Grounded in the teacher's pkg/masking package (Masker interface,
// compiled regex CompiledPattern built from named pattern groups, a
// code-aware masker for structured payloads), generalized from "mask MCP
// tool payloads" to "mask ingress/egress terminal text before it is
// persisted or indexed."
package masking

import (
	"fmt"
	"log/slog"
	"slices"
)

// Service applies data masking to ingress (operator keystroke) and egress
// (program output) text before either is handed to the append-log.
// Created once at startup; thread-safe and stateless aside from its
// eagerly-compiled patterns.
type Service struct {
	patterns      map[string]*CompiledPattern
	patternGroups map[string][]string
	codeMaskers   map[string]Masker
	codeMaskerSet []string
	cfg           Config
}

// NewService compiles cfg's built-in and custom patterns eagerly. Invalid
// custom patterns are logged and skipped (fail-open on compilation, never
// on application — a pattern that doesn't compile simply never fires).
func NewService(cfg Config) *Service {
	s := &Service{
		patterns:      make(map[string]*CompiledPattern),
		patternGroups: builtinPatternGroups(),
		codeMaskers:   make(map[string]Masker),
		codeMaskerSet: builtinCodeMaskers(),
		cfg:           cfg,
	}

	for name, p := range builtinMaskingPatterns() {
		cp, err := compilePattern(name, p)
		if err != nil {
			slog.Error("masking: failed to compile built-in pattern, skipping", "pattern", name, "error", err)
			continue
		}
		s.patterns[name] = cp
	}
	for i, p := range cfg.CustomPatterns {
		name := customPatternName(i)
		cp, err := compilePattern(name, p)
		if err != nil {
			slog.Error("masking: failed to compile custom pattern, skipping", "pattern", name, "error", err)
			continue
		}
		s.patterns[name] = cp
	}

	s.registerMasker(&KubernetesSecretMasker{})

	slog.Info("masking service initialized",
		"builtin_patterns", len(builtinMaskingPatterns()),
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers),
		"enabled", cfg.Enabled)

	return s
}

func customPatternName(i int) string {
	return fmt.Sprintf("custom:%d", i)
}

// registerMasker registers a code-aware masker by its Name().
func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}

// Redact applies the configured masking pipeline to text and returns the
// redacted text plus the resulting tier. Disabled configs and empty text
// are passed through unchanged with TierNone. On an internal masking
// failure the service fails closed: the entire payload is replaced and
// TierFull is returned, since ingress/egress text may carry secrets that
// must never reach durable storage unmasked.
func (s *Service) Redact(text string) (string, Tier) {
	if !s.cfg.Enabled || text == "" {
		return text, TierNone
	}

	resolved := s.resolve()
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return text, TierNone
	}

	masked := text
	fired := false

	for _, name := range resolved.codeMaskerNames {
		m, ok := s.codeMaskers[name]
		if !ok {
			continue
		}
		if m.AppliesTo(masked) {
			next := m.Mask(masked)
			if next != masked {
				fired = true
			}
			masked = next
		}
	}
	for _, p := range resolved.regexPatterns {
		next := p.Regex.ReplaceAllString(masked, p.Replacement)
		if next != masked {
			fired = true
		}
		masked = next
	}

	if !fired {
		return text, TierNone
	}
	return masked, TierPartial
}

// RedactFailClosed is the degraded-path variant used when a masker panics
// or errs mid-pass: the caller substitutes the full payload with a
// redaction notice rather than risk persisting a partially-masked secret.
func RedactFailClosed() (string, Tier) {
	return "[REDACTED: data masking failure - text could not be safely processed]", TierFull
}

func (s *Service) resolve() *resolvedPatterns {
	seen := make(map[string]bool)
	resolved := &resolvedPatterns{}

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if slices.Contains(s.codeMaskerSet, name) {
			resolved.codeMaskerNames = append(resolved.codeMaskerNames, name)
			return
		}
		if cp, ok := s.patterns[name]; ok {
			resolved.regexPatterns = append(resolved.regexPatterns, cp)
		}
	}

	for _, group := range s.cfg.PatternGroups {
		for _, name := range s.patternGroups[group] {
			add(name)
		}
	}
	for _, name := range s.cfg.Patterns {
		add(name)
	}
	for i := range s.cfg.CustomPatterns {
		add(customPatternName(i))
	}

	return resolved
}
