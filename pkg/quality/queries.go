package quality

import "github.com/wa-project/recorder/pkg/lexical"

// StandardSuite is the hand-curated golden-query suite for SyntheticCorpus.
func StandardSuite() []GoldenQuery {
	return []GoldenQuery{
		{
			Name:        "find_nginx_failure",
			Class:       SimpleTerm,
			Query:       lexical.Query{Text: "nginx", Limit: 10},
			Assertions: []Assertion{
				MustHit{EventID: "evt-0003"},
				MustHit{EventID: "evt-0004"},
				MustHit{EventID: "evt-0005"},
				MinTotalHits{N: 3},
			},
			Description: "simple single-term lookup across the nginx restart stanza",
		},
		{
			Name:  "bind_address_in_use",
			Class: MultiTerm,
			Query: lexical.Query{Text: "address already in use", Limit: 10},
			Assertions: []Assertion{
				FirstResult{EventID: "evt-0005"},
			},
			Description: "multi-term phrase should rank the exact stanza first",
		},
		{
			Name:  "pane_scoped_kubectl",
			Class: Filtered,
			Query: lexical.Query{
				Text:    "pods",
				Filters: []lexical.Filter{lexical.PaneIDFilter{Values: []uint64{2}}},
				Limit:   10,
			},
			Assertions: []Assertion{
				MustHit{EventID: "evt-0006"},
				ExactTotalHits{N: 1},
				AllMatchFilter{Name: "pane=2", Pred: func(d lexical.Document) bool { return d.PaneID == 2 }},
			},
			Description: "pane-scoped filter should exclude matches from other panes",
		},
		{
			Name:  "crash_loop_before_rollback",
			Class: Forensic,
			Query: lexical.Query{Text: "crashloopbackoff rolled back", Limit: 10},
			Assertions: []Assertion{
				MustHit{EventID: "evt-0007"},
				MustHit{EventID: "evt-0010"},
			},
			Description: "forensic cross-pane query correlating the crash with its remediation",
		},
		{
			Name:  "connection_refused_not_nginx_bind",
			Class: HighCardinality,
			Query: lexical.Query{Text: "connection refused", Limit: 10},
			Assertions: []Assertion{
				MustHit{EventID: "evt-0009"},
				MustNotHit{EventID: "evt-0005"},
			},
			Description: "high-cardinality error-text query should not cross-match unrelated error stanzas",
		},
		{
			Name:  "control_marker_has_no_text",
			Class: Filtered,
			Query: lexical.Query{
				Filters: []lexical.Filter{lexical.EventTypeFilter{Values: []string{"control"}}},
				Limit:   10,
			},
			Assertions: []Assertion{
				ExactTotalHits{N: 1},
				MustHit{EventID: "evt-0008"},
			},
			Description: "filter-only query (no text) over control markers",
		},
	}
}
