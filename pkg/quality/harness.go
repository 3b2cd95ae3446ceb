package quality

import (
	"fmt"
	"time"

	"github.com/wa-project/recorder/pkg/lexical"
)

// QueryResult is the outcome of running one GoldenQuery.
type QueryResult struct {
	Name             string
	Class            QueryClass
	Elapsed          time.Duration
	Budget           time.Duration
	LatencyViolation bool
	Err              error
	FailedAssertions []string
	Passed           bool
}

// Report aggregates QueryResults across a full golden suite run.
type Report struct {
	Results           []QueryResult
	Passed            int
	Failed            int
	LatencyViolations int
	Errors            int
	AllPassed         bool
}

// Run executes every query in queries against svc, measuring elapsed time
// and evaluating assertions, per spec.md's quality harness. A query passes
// iff every assertion passes AND elapsed time is within budget; budgets
// with no entry for a query's class are treated as unbounded.
func Run(svc *lexical.Service, queries []GoldenQuery, budgets map[QueryClass]time.Duration) Report {
	var report Report
	for _, gq := range queries {
		qr := runOne(svc, gq, budgets)
		report.Results = append(report.Results, qr)
		if qr.Err != nil {
			report.Errors++
		}
		if qr.LatencyViolation {
			report.LatencyViolations++
		}
		if qr.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	report.AllPassed = report.Failed == 0
	return report
}

func runOne(svc *lexical.Service, gq GoldenQuery, budgets map[QueryClass]time.Duration) QueryResult {
	qr := QueryResult{Name: gq.Name, Class: gq.Class, Budget: budgets[gq.Class]}

	start := time.Now()
	res, err := svc.Search(gq.Query)
	qr.Elapsed = time.Since(start)

	if err != nil {
		qr.Err = err
		qr.Passed = false
		return qr
	}

	for _, a := range gq.Assertions {
		if aerr := a.check(res); aerr != nil {
			qr.FailedAssertions = append(qr.FailedAssertions, aerr.Error())
		}
	}

	if qr.Budget > 0 && qr.Elapsed > qr.Budget {
		qr.LatencyViolation = true
	}

	qr.Passed = len(qr.FailedAssertions) == 0 && !qr.LatencyViolation
	return qr
}

// Summary renders a one-line human-readable report, in the teacher's
// t.Logf-style terse diagnostic register.
func (r Report) Summary() string {
	return fmt.Sprintf("quality: %d passed, %d failed, %d latency violations, %d errors, all_passed=%v",
		r.Passed, r.Failed, r.LatencyViolations, r.Errors, r.AllPassed)
}
