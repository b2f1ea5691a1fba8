package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/discuits/discuitsctl/pkg/config"
	"github.com/discuits/discuitsctl/pkg/provision"
	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
	"github.com/discuits/discuitsctl/pkg/store/memory"
)

func init() {
	color.NoColor = true
}

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	return cfg
}

func TestRunProvisionWithMemoryBackend(t *testing.T) {
	report, err := runProvision(context.Background(), memoryConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 7, report.Count(provision.OutcomeCreated))
}

func TestRunOnceWritesReportAndMetrics(t *testing.T) {
	cfg := memoryConfig()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "discuits.prom")

	registry := prometheus.NewRegistry()
	var out bytes.Buffer
	ok := runOnce(context.Background(), cfg, zap.NewNop(), provision.NewMetrics(registry), registry, &out)
	require.True(t, ok)

	assert.Contains(t, out.String(), "created  collection artist_to")
	assert.Contains(t, out.String(), "9 steps, 7 created, 2 applied")

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `discuits_provision_steps_total{outcome="created",step="collection"} 5`)
	assert.Contains(t, string(data), "discuits_provision_last_run_failed_steps 0")
}

func TestRunOnceReportsConnectionFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendPostgres

	var out bytes.Buffer
	ok := runOnce(context.Background(), cfg, zap.NewNop(), nil, prometheus.NewRegistry(), &out)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestProvisionHelpNamesSkippedSteps(t *testing.T) {
	admin := memory.New()
	admin.FailOn(memory.OpCreateDatabase, "", errors.New("permission denied"))
	report := provision.New(admin).Run(context.Background(), provision.DefaultPlan())

	help := strings.Join(strings.Fields(provisionCmd.Long), " ")
	assert.Contains(t, help, "When the database could not be ensured, the grant, the database selection and the collections are skipped.")

	skipped := map[provision.Step]bool{}
	for _, res := range report.Results {
		if res.Outcome == provision.OutcomeSkipped {
			skipped[res.Step] = true
		}
	}
	assert.Equal(t, map[provision.Step]bool{
		provision.StepGrant:      true,
		provision.StepSelect:     true,
		provision.StepCollection: true,
	}, skipped)
}

func TestPrintReport(t *testing.T) {
	report := &provision.Report{Results: []provision.StepResult{
		{Step: provision.StepUser, Target: "discuits_test", Outcome: provision.OutcomeExists},
		{Step: provision.StepCollection, Target: "artist", Outcome: provision.OutcomeFailed, Err: errors.New("boom")},
		{Step: provision.StepCollection, Target: "mystery", Outcome: provision.OutcomeSkipped, Detail: "unrecognized kind 2"},
	}}

	var out bytes.Buffer
	printReport(&out, report)

	assert.Contains(t, out.String(), "exists   user       discuits_test\n")
	assert.Contains(t, out.String(), "failed   collection artist: boom\n")
	assert.Contains(t, out.String(), "skipped  collection mystery (unrecognized kind 2)\n")
	assert.Contains(t, out.String(), "3 steps, 1 exists, 1 failed, 1 skipped\n")
}

type healthMock struct {
	mock.Mock
}

func (m *healthMock) ServerVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

var _ store.HealthStore = (*healthMock)(nil)

func TestWaitForServer(t *testing.T) {
	health := &healthMock{}
	health.On("ServerVersion", mock.Anything).Return("", errors.New("connection refused")).Twice()
	health.On("ServerVersion", mock.Anything).Return("3.11.5", nil).Once()

	var out bytes.Buffer
	version, err := waitForServer(context.Background(), health, 5, time.Millisecond, &out)
	require.NoError(t, err)
	assert.Equal(t, "3.11.5", version)
	assert.Contains(t, out.String(), "..")
	health.AssertExpectations(t)
}

func TestWaitForServerGivesUp(t *testing.T) {
	health := &healthMock{}
	health.On("ServerVersion", mock.Anything).Return("", errors.New("connection refused"))

	var out bytes.Buffer
	_, err := waitForServer(context.Background(), health, 3, time.Millisecond, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 3 attempts")
	assert.Contains(t, err.Error(), "connection refused")
	health.AssertNumberOfCalls(t, "ServerVersion", 3)
}

func TestWaitForServerRejectsNonPositiveRetries(t *testing.T) {
	for _, retries := range []int{0, -1} {
		health := &healthMock{}

		var out bytes.Buffer
		_, err := waitForServer(context.Background(), health, retries, time.Millisecond, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retries must be at least 1")
		assert.NotContains(t, err.Error(), "%!w")
		health.AssertNotCalled(t, "ServerVersion", mock.Anything)
	}
}

func TestVerifyReportsMissingState(t *testing.T) {
	var out bytes.Buffer
	ok, err := verify(context.Background(), memoryConfig(), &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "user discuits_test does not exist")
	assert.Contains(t, out.String(), "database discuits_test does not exist")
}

func TestPlanFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.User = "app"
	cfg.UserPassword = "pw"
	cfg.Grant = "ro"
	cfg.Collections = schema.Table{{Name: "album", Kind: schema.KindDocument}}

	plan := planFromConfig(cfg)
	assert.Equal(t, "app", plan.User)
	assert.Equal(t, "pw", plan.Password)
	assert.Equal(t, "discuits_test", plan.Database)
	assert.Equal(t, store.GrantReadOnly, plan.Grant)
	assert.Equal(t, []string{"album"}, plan.Collections.Names())
}

func TestShowConfigurationJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discuits.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\nadmin_password: hunter2\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, showConfiguration(path, "json", &out))
	assert.Contains(t, out.String(), `"config_file": "`+path+`"`)
	assert.Contains(t, out.String(), `"value": "memory"`)
	assert.NotContains(t, out.String(), "hunter2")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discuits.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend: mongodb\n"), 0o600))

	_, err := loadConfigFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backend")
}
