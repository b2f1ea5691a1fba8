package provision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// ApplyOption applies a given option to the provisioner
type ApplyOption func(o *options)

// WithLogger sets the logger step results are written to
func WithLogger(logger *zap.Logger) ApplyOption {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records every step result and run in m
func WithMetrics(m *Metrics) ApplyOption {
	return func(o *options) {
		o.metrics = m
	}
}

func defaultOptions() *options {
	return &options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// Provisioner converges a server to a Plan through store.Admin. Every
// step returns a StepResult instead of an error; Run decides which
// failures end the run.
type Provisioner struct {
	admin store.Admin
	opt   *options
}

// New creates a Provisioner issuing its calls through admin
func New(admin store.Admin, opts ...ApplyOption) *Provisioner {
	dst := defaultOptions()
	for _, apply := range opts {
		apply(dst)
	}
	return &Provisioner{admin: admin, opt: dst}
}

// EnsureUser creates the user. An already existing user is not a failure.
func (p *Provisioner) EnsureUser(ctx context.Context, name, password string) StepResult {
	err := p.admin.CreateUser(ctx, name, password)
	return p.record(creation(StepUser, name, err))
}

// EnsureDatabase creates the database unless it is listed already
func (p *Provisioner) EnsureDatabase(ctx context.Context, name string) StepResult {
	names, err := p.admin.DatabaseNames(ctx)
	if err != nil {
		return p.record(StepResult{Step: StepDatabase, Target: name, Outcome: OutcomeFailed, Err: err})
	}
	for _, existing := range names {
		if existing == name {
			return p.record(StepResult{Step: StepDatabase, Target: name, Outcome: OutcomeExists})
		}
	}

	err = p.admin.CreateDatabase(ctx, name)
	return p.record(creation(StepDatabase, name, err))
}

// GrantAccess (re-)applies the access level of user on database
func (p *Provisioner) GrantAccess(ctx context.Context, user, database string, grant store.Grant) StepResult {
	target := fmt.Sprintf("%s@%s:%s", user, database, grant)
	if err := p.admin.GrantDatabase(ctx, user, database, grant); err != nil {
		return p.record(StepResult{Step: StepGrant, Target: target, Outcome: OutcomeFailed, Err: err})
	}
	return p.record(StepResult{Step: StepGrant, Target: target, Outcome: OutcomeApplied})
}

// SelectDatabase returns the handle every collection call goes through.
// The handle is nil when the step failed.
func (p *Provisioner) SelectDatabase(ctx context.Context, name string) (store.Database, StepResult) {
	db, err := p.admin.UseDatabase(ctx, name)
	if err != nil {
		return nil, p.record(StepResult{Step: StepSelect, Target: name, Outcome: OutcomeFailed, Err: err})
	}
	return db, p.record(StepResult{Step: StepSelect, Target: name, Outcome: OutcomeApplied})
}

// EnsureCollection creates c in db through the path matching its kind.
// A kind other than document or edge issues no call.
func (p *Provisioner) EnsureCollection(ctx context.Context, db store.Database, c schema.Collection) StepResult {
	var err error
	switch c.Kind {
	case schema.KindDocument:
		err = db.CreateDocumentCollection(ctx, c.Name)
	case schema.KindEdge:
		err = db.CreateEdgeCollection(ctx, c.Name)
	default:
		p.opt.logger.Warn("Unrecognized collection kind",
			zap.String("collection", c.Name),
			zap.Int("kind", int(c.Kind)),
		)
		r := StepResult{
			Step:    StepCollection,
			Target:  c.Name,
			Outcome: OutcomeSkipped,
			Detail:  fmt.Sprintf("unrecognized kind %d", int(c.Kind)),
		}
		p.opt.metrics.observeStep(r)
		return r
	}
	return p.record(creation(StepCollection, c.Name, err))
}

// Run executes the plan in order: user, database, grant, select,
// collections. A failed database step skips the rest of the run and a
// failed select skips the collections. Every other failure only affects
// its own step.
func (p *Provisioner) Run(ctx context.Context, plan Plan) *Report {
	report := &Report{Started: p.opt.now()}

	report.add(p.EnsureUser(ctx, plan.User, plan.Password))

	dbResult := p.EnsureDatabase(ctx, plan.Database)
	report.add(dbResult)

	grantTarget := fmt.Sprintf("%s@%s:%s", plan.User, plan.Database, plan.Grant)
	if dbResult.Failed() {
		reason := "database " + plan.Database + " could not be ensured"
		report.add(p.skip(StepGrant, grantTarget, reason))
		report.add(p.skip(StepSelect, plan.Database, reason))
		for _, c := range plan.Collections {
			report.add(p.skip(StepCollection, c.Name, reason))
		}
		return p.finish(report)
	}

	report.add(p.GrantAccess(ctx, plan.User, plan.Database, plan.Grant))

	db, selectResult := p.SelectDatabase(ctx, plan.Database)
	report.add(selectResult)
	if selectResult.Failed() {
		reason := "database " + plan.Database + " could not be selected"
		for _, c := range plan.Collections {
			report.add(p.skip(StepCollection, c.Name, reason))
		}
		return p.finish(report)
	}

	for _, c := range plan.Collections {
		report.add(p.EnsureCollection(ctx, db, c))
	}
	return p.finish(report)
}

func (p *Provisioner) finish(report *Report) *Report {
	report.Finished = p.opt.now()
	p.opt.metrics.observeRun(report)

	p.opt.logger.Info("Provisioning finished",
		zap.Int("steps", len(report.Results)),
		zap.Int("failed", report.Count(OutcomeFailed)),
		zap.Duration("duration", report.Duration()),
	)
	return report
}

func (p *Provisioner) skip(step Step, target, reason string) StepResult {
	return p.record(StepResult{Step: step, Target: target, Outcome: OutcomeSkipped, Detail: reason})
}

// creation classifies the error of a create call
func creation(step Step, target string, err error) StepResult {
	switch {
	case err == nil:
		return StepResult{Step: step, Target: target, Outcome: OutcomeCreated}
	case store.IsAlreadyExists(err):
		return StepResult{Step: step, Target: target, Outcome: OutcomeExists, Err: err}
	default:
		return StepResult{Step: step, Target: target, Outcome: OutcomeFailed, Err: err}
	}
}

// record logs the result and counts it
func (p *Provisioner) record(r StepResult) StepResult {
	p.opt.metrics.observeStep(r)

	log := p.opt.logger.With(zap.String("step", string(r.Step)), zap.String("target", r.Target))
	switch r.Outcome {
	case OutcomeCreated:
		log.Info("Created")
	case OutcomeApplied:
		log.Info("Applied")
	case OutcomeExists:
		log.Info("Already exists", zap.NamedError("reason", r.Err))
	case OutcomeSkipped:
		log.Info("Skipped", zap.String("reason", r.Detail))
	case OutcomeFailed:
		log.Error(failureMessage(r), zap.Error(r.Err))
	}
	return r
}

func failureMessage(r StepResult) string {
	switch r.Step {
	case StepUser:
		return "Error: Creating User " + r.Target
	case StepDatabase:
		return "Error: Creating Database " + r.Target
	case StepGrant:
		return "Error: Granting Access " + r.Target
	case StepSelect:
		return "Error: Selecting Database " + r.Target
	case StepCollection:
		return "Error: Creating Collection " + r.Target
	default:
		return "Error: " + string(r.Step) + " " + r.Target
	}
}
