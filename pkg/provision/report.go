package provision

import (
	"time"
)

// Step identifies one kind of provisioning step
type Step string

const (
	StepUser       Step = "user"
	StepDatabase   Step = "database"
	StepGrant      Step = "grant"
	StepSelect     Step = "select"
	StepCollection Step = "collection"
)

// Outcome classifies the result of a step
type Outcome string

const (
	// OutcomeCreated means the object did not exist and was created
	OutcomeCreated Outcome = "created"
	// OutcomeExists means the object was already present
	OutcomeExists Outcome = "exists"
	// OutcomeApplied means an unconditional call succeeded
	OutcomeApplied Outcome = "applied"
	// OutcomeFailed means the call failed; the error is kept on the result
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means no call was issued
	OutcomeSkipped Outcome = "skipped"
)

// Outcomes lists every outcome in display order
var Outcomes = []Outcome{OutcomeCreated, OutcomeExists, OutcomeApplied, OutcomeFailed, OutcomeSkipped}

// StepResult is the classified result of one step
type StepResult struct {
	Step    Step
	Target  string
	Outcome Outcome
	Err     error
	// Detail explains skipped steps
	Detail string
}

// Failed reports whether the step failed
func (r StepResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Report is the ordered list of step results of one run
type Report struct {
	Results  []StepResult
	Started  time.Time
	Finished time.Time
}

func (r *Report) add(result StepResult) {
	r.Results = append(r.Results, result)
}

// Failed returns the failed steps in execution order
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Count returns the number of steps with the given outcome
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// OK reports whether no step failed
func (r *Report) OK() bool {
	return r.Count(OutcomeFailed) == 0
}

// Result returns the first result of step targeting target
func (r *Report) Result(step Step, target string) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Step == step && res.Target == target {
			return res, true
		}
	}
	return StepResult{}, false
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
