// Package provision converges a database server to the state the Discuits
// application expects: one user, one database, a grant for that user and a
// table of document and edge collections.
//
// A run is best effort. Each step returns a StepResult; failures are logged
// and the run moves on, except when the database itself cannot be ensured
// or selected, in which case the remaining steps are reported as skipped.
// Running again is the recovery mechanism.
//
// # Usage
//
//	p := provision.New(admin,
//	    provision.WithLogger(logger),
//	    provision.WithMetrics(provision.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	report := p.Run(ctx, provision.DefaultPlan())
//	for _, res := range report.Failed() {
//	    fmt.Println(res.Step, res.Target, res.Err)
//	}
//
// Verify reads the state back and lists what differs from the plan.
package provision
