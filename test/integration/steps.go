package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/discuits/discuitsctl/pkg/provision"
	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
	"github.com/discuits/discuitsctl/pkg/store/memory"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc      *TestContext
	admin   store.Admin
	plan    provision.Plan
	logs    *observer.ObservedLogs
	logger  *zap.Logger
	reports []*provision.Report
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	core, logs := observer.New(zapcore.InfoLevel)
	return &StepsContext{
		tc:     tc,
		plan:   provision.DefaultPlan(),
		logs:   logs,
		logger: zap.New(core),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.admin != nil {
			_ = s.admin.Close()
		}
		return ctx, err
	})

	// Setup steps
	sc.Step(`^an empty database server$`, s.anEmptyDatabaseServer)
	sc.Step(`^the collection "([^"]*)" is configured with kind (\d+)$`, s.theCollectionIsConfiguredWithKind)
	sc.Step(`^creating the collection "([^"]*)" fails$`, s.creatingTheCollectionFails)

	// Provisioning steps
	sc.Step(`^I provision the database$`, s.iProvisionTheDatabase)
	sc.Step(`^I provision the database again$`, s.iProvisionTheDatabase)

	// Report steps
	sc.Step(`^the last run should report no failures$`, s.theLastRunShouldReportNoFailures)
	sc.Step(`^the last run should report (\d+) failures$`, s.theLastRunShouldReportFailures)
	sc.Step(`^the last run should have created (\d+) objects$`, s.theLastRunShouldHaveCreated)
	sc.Step(`^the last run should report (\d+) "([^"]*)" collection steps$`, s.theLastRunShouldReportCollectionSteps)
	sc.Step(`^a warning "([^"]*)" should have been logged$`, s.aWarningShouldHaveBeenLogged)
	sc.Step(`^an error "([^"]*)" should have been logged$`, s.anErrorShouldHaveBeenLogged)

	// State steps
	sc.Step(`^user "([^"]*)" should exist$`, s.userShouldExist)
	sc.Step(`^database "([^"]*)" should exist$`, s.databaseShouldExist)
	sc.Step(`^user "([^"]*)" should have "([^"]*)" access to database "([^"]*)"$`, s.userShouldHaveAccess)
	sc.Step(`^"([^"]*)" should be an? (document|edge) collection in database "([^"]*)"$`, s.shouldBeACollection)
	sc.Step(`^collection "([^"]*)" should not exist in database "([^"]*)"$`, s.collectionShouldNotExist)
	sc.Step(`^the server should be fully provisioned$`, s.theServerShouldBeFullyProvisioned)
	sc.Step(`^user "([^"]*)" can write to "([^"]*)" in database "([^"]*)"$`, s.userCanWriteTo)
}

// Setup steps

func (s *StepsContext) anEmptyDatabaseServer(ctx context.Context) error {
	if err := s.tc.Reset(ctx, s.plan.User, s.plan.Database); err != nil {
		return err
	}
	admin, err := s.tc.Open()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	s.admin = admin
	return nil
}

func (s *StepsContext) theCollectionIsConfiguredWithKind(name string, kind int) error {
	s.plan.Collections = append(s.plan.Collections, schema.Collection{Name: name, Kind: schema.Kind(kind)})
	return s.plan.Validate()
}

func (s *StepsContext) creatingTheCollectionFails(name string) error {
	mem, ok := s.admin.(*memory.Admin)
	if !ok {
		return godog.ErrPending
	}
	kind, ok := s.plan.Collections.Lookup(name)
	if !ok {
		return fmt.Errorf("collection %q is not configured", name)
	}
	op := memory.OpCreateDocumentCollection
	if kind == schema.KindEdge {
		op = memory.OpCreateEdgeCollection
	}
	mem.FailOn(op, name, errors.New("simulated failure"))
	return nil
}

// Provisioning steps

func (s *StepsContext) iProvisionTheDatabase(ctx context.Context) error {
	p := provision.New(s.admin, provision.WithLogger(s.logger))
	s.reports = append(s.reports, p.Run(ctx, s.plan))
	return nil
}

// Report steps

func (s *StepsContext) lastReport() (*provision.Report, error) {
	if len(s.reports) == 0 {
		return nil, fmt.Errorf("the database was not provisioned")
	}
	return s.reports[len(s.reports)-1], nil
}

func (s *StepsContext) theLastRunShouldReportNoFailures() error {
	return s.theLastRunShouldReportFailures(0)
}

func (s *StepsContext) theLastRunShouldReportFailures(expected int) error {
	report, err := s.lastReport()
	if err != nil {
		return err
	}
	failed := report.Failed()
	if len(failed) != expected {
		var details []string
		for _, f := range failed {
			details = append(details, fmt.Sprintf("%s %s: %v", f.Step, f.Target, f.Err))
		}
		return fmt.Errorf("expected %d failures, got %d: %v", expected, len(failed), details)
	}
	return nil
}

func (s *StepsContext) theLastRunShouldHaveCreated(expected int) error {
	report, err := s.lastReport()
	if err != nil {
		return err
	}
	if got := report.Count(provision.OutcomeCreated); got != expected {
		return fmt.Errorf("expected %d created objects, got %d", expected, got)
	}
	return nil
}

func (s *StepsContext) theLastRunShouldReportCollectionSteps(expected int, outcome string) error {
	report, err := s.lastReport()
	if err != nil {
		return err
	}
	got := 0
	for _, res := range report.Results {
		if res.Step == provision.StepCollection && res.Outcome == provision.Outcome(outcome) {
			got++
		}
	}
	if got != expected {
		return fmt.Errorf("expected %d %q collection steps, got %d", expected, outcome, got)
	}
	return nil
}

func (s *StepsContext) aWarningShouldHaveBeenLogged(message string) error {
	return s.shouldHaveLogged(zapcore.WarnLevel, message)
}

func (s *StepsContext) anErrorShouldHaveBeenLogged(message string) error {
	return s.shouldHaveLogged(zapcore.ErrorLevel, message)
}

func (s *StepsContext) shouldHaveLogged(level zapcore.Level, message string) error {
	if s.logs.FilterLevelExact(level).FilterMessage(message).Len() == 0 {
		return fmt.Errorf("expected %s log %q", level, message)
	}
	return nil
}

// State steps

func (s *StepsContext) userShouldExist(ctx context.Context, name string) error {
	ok, err := s.admin.UserExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s does not exist", name)
	}
	return nil
}

func (s *StepsContext) databaseShouldExist(ctx context.Context, name string) error {
	names, err := s.admin.DatabaseNames(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("database %s does not exist (have %v)", name, names)
}

func (s *StepsContext) userShouldHaveAccess(ctx context.Context, user, level, database string) error {
	grant, err := s.admin.DatabaseAccess(ctx, user, database)
	if err != nil {
		return err
	}
	if string(grant) != level {
		return fmt.Errorf("user %s has %s access on %s, expected %s", user, grant, database, level)
	}
	return nil
}

func (s *StepsContext) collections(ctx context.Context, database string) (map[string]schema.Kind, error) {
	db, err := s.admin.UseDatabase(ctx, database)
	if err != nil {
		return nil, err
	}
	return db.Collections(ctx)
}

func (s *StepsContext) shouldBeACollection(ctx context.Context, name, kind, database string) error {
	expected, err := schema.KindString(kind)
	if err != nil {
		return err
	}
	cols, err := s.collections(ctx, database)
	if err != nil {
		return err
	}
	got, ok := cols[name]
	if !ok {
		return fmt.Errorf("collection %s does not exist in %s", name, database)
	}
	if got != expected {
		return fmt.Errorf("collection %s is %s, expected %s", name, got, expected)
	}
	return nil
}

func (s *StepsContext) collectionShouldNotExist(ctx context.Context, name, database string) error {
	cols, err := s.collections(ctx, database)
	if err != nil {
		return err
	}
	if _, ok := cols[name]; ok {
		return fmt.Errorf("collection %s exists in %s", name, database)
	}
	return nil
}

func (s *StepsContext) theServerShouldBeFullyProvisioned(ctx context.Context) error {
	v, err := provision.Verify(ctx, s.admin, s.plan)
	if err != nil {
		return err
	}
	if !v.OK() {
		return fmt.Errorf("server differs from plan: %v", v.Discrepancies)
	}
	return nil
}

func (s *StepsContext) userCanWriteTo(ctx context.Context, user, collection, database string) error {
	if err := s.tc.WriteAs(ctx, user, database, collection); err != nil {
		return fmt.Errorf("user %s cannot write to %s: %w", user, collection, err)
	}
	return nil
}
