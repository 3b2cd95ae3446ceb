package masking

import (
	"fmt"
	"regexp"
)

// Tier is the redaction outcome recorded on a persisted event's payload.
type Tier string

const (
	// TierNone means no masker or pattern fired; text is stored as-is.
	TierNone Tier = "none"
	// TierPartial means at least one masker fired but left some of the
	// original text intact.
	TierPartial Tier = "partial"
	// TierFull means the entire payload was replaced (fail-closed path).
	TierFull Tier = "full"
)

// Pattern is a named regex rule with its replacement text.
type Pattern struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Description string `yaml:"description"`
}

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// Config selects which built-in pattern groups and code-aware maskers are
// active, plus any operator-supplied custom patterns, for one masking
// pipeline instance (ingress or egress).
type Config struct {
	Enabled        bool      `yaml:"enabled"`
	PatternGroups  []string  `yaml:"pattern_groups"`
	Patterns       []string  `yaml:"patterns"`
	CustomPatterns []Pattern `yaml:"custom_patterns"`
}

// builtinMaskingPatterns are the regex-based secret patterns this recorder
// ships with. Grounded in the teacher's pkg/config built-in masking pattern
// set, generalized from "mask MCP tool payloads" to "mask any ingress/
// egress terminal text before it is persisted or indexed."
func builtinMaskingPatterns() map[string]Pattern {
	return map[string]Pattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey|key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{20,})["\']?`,
			Replacement: `"api_key": "[MASKED_API_KEY]"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|pass)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
			Replacement: `"password": "[MASKED_PASSWORD]"`,
			Description: "Passwords",
		},
		"certificate": {
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `[MASKED_CERTIFICATE]`,
			Description: "SSL/TLS certificates",
		},
		"certificate_authority_data": {
			Pattern:     `(?i)certificate-authority-data:\s*([A-Za-z0-9+/]{20,}={0,2})`,
			Replacement: `certificate-authority-data: [MASKED_CA_CERTIFICATE]`,
			Description: "K8s CA data",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"token": "[MASKED_TOKEN]"`,
			Description: "Access tokens",
		},
		"email": {
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `[MASKED_EMAIL]`,
			Description: "Email addresses",
		},
		"ssh_key": {
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: `[MASKED_SSH_KEY]`,
			Description: "SSH public keys",
		},
		"private_key": {
			Pattern:     `(?i)(?:private[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
			Description: "Private keys",
		},
		"secret_key": {
			Pattern:     `(?i)(?:secret[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
			Description: "Secret keys",
		},
		"aws_access_key": {
			Pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["\']?\s*[:=]\s*["\']?(AKIA[A-Z0-9]{16})["\']?`,
			Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			Description: "AWS access keys",
		},
		"aws_secret_key": {
			Pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9/+=]{40})["\']?`,
			Replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
			Description: "AWS secret keys",
		},
		"github_token": {
			Pattern:     `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
			Replacement: `[MASKED_GITHUB_TOKEN]`,
			Description: "GitHub tokens",
		},
		"slack_token": {
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `[MASKED_SLACK_TOKEN]`,
			Description: "Slack tokens",
		},
		"base64_secret": {
			Pattern:     `\b([A-Za-z0-9+/]{20,}={0,2})\b`,
			Replacement: `[MASKED_BASE64_VALUE]`,
			Description: "Base64 values (20+ chars)",
		},
	}
}

// builtinPatternGroups are predefined groups of masking patterns. Members
// can name either a regex pattern above, or a code-aware masker registered
// by name (e.g. "kubernetes_secret").
func builtinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":      {"api_key", "password"},
		"secrets":    {"api_key", "password", "token", "private_key", "secret_key"},
		"security":   {"api_key", "password", "token", "certificate", "certificate_authority_data", "email", "ssh_key"},
		"kubernetes": {"kubernetes_secret", "api_key", "password", "certificate_authority_data"},
		"cloud":      {"aws_access_key", "aws_secret_key", "api_key", "token"},
		"all": {
			"base64_secret", "api_key", "password", "certificate",
			"certificate_authority_data", "email", "token", "ssh_key",
			"private_key", "secret_key", "aws_access_key", "aws_secret_key",
			"github_token", "slack_token",
		},
	}
}

// builtinCodeMaskers names the code-aware maskers available to pattern
// groups. Each name must match a registered Masker's Name().
func builtinCodeMaskers() []string {
	return []string{"kubernetes_secret"}
}

// resolvedPatterns holds the resolved set of maskers and patterns for one
// masking pass.
type resolvedPatterns struct {
	codeMaskerNames []string
	regexPatterns   []*CompiledPattern
}

func compilePattern(name string, p Pattern) (*CompiledPattern, error) {
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return nil, fmt.Errorf("masking: compile pattern %q: %w", name, err)
	}
	return &CompiledPattern{Name: name, Regex: re, Replacement: p.Replacement, Description: p.Description}, nil
}
