package lexical

import "strings"

// extractSnippets finds up to cfg.MaxFragments fragments of cfg.FragmentChars
// around occurrences of any query token in text, wrapping each matched term
// in cfg.Before/cfg.After. Matching is case-insensitive token matching
// consistent with tokenize. Returns nil when snippets are disabled or no
// term matches.
func extractSnippets(text string, queryTokens []string, cfg SnippetConfig) []string {
	if !cfg.Enabled || text == "" || len(queryTokens) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	tokenSet := make(map[string]bool, len(queryTokens))
	for _, t := range queryTokens {
		tokenSet[t] = true
	}

	var snippets []string
	used := make([]bool, len(text))
	half := cfg.FragmentChars / 2

	for i := 0; i < len(text) && len(snippets) < cfg.MaxFragments; i++ {
		matchLen := 0
		for tok := range tokenSet {
			if strings.HasPrefix(lower[i:], tok) {
				if len(tok) > matchLen {
					matchLen = len(tok)
				}
			}
		}
		if matchLen == 0 {
			continue
		}
		if used[i] {
			continue
		}

		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + matchLen + half
		if end > len(text) {
			end = len(text)
		}
		for j := start; j < end; j++ {
			used[j] = true
		}

		fragment := text[start:i] + cfg.Before + text[i:i+matchLen] + cfg.After + text[i+matchLen:end]
		snippets = append(snippets, fragment)
	}
	return snippets
}
