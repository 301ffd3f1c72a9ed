package main

import (
	"blocklist/internal/blocklist"
	mockblocklist "blocklist/internal/blocklist/mock"
	"blocklist/internal/config"
	"blocklist/pkg/metrics"
	mockpublish "blocklist/pkg/publish/mock"
	"blocklist/pkg/serrors"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var jobs = []blocklist.Job{
	{Name: "a", Input: "a.txt", Output: "out/a.txt"},
	{Name: "b", Input: "b.txt", Output: "out/b.txt"},
}

func report(results ...blocklist.Result) blocklist.Report {
	r := blocklist.Report{Results: results}
	for _, res := range results {
		if !res.OK() {
			r.Failed++

			continue
		}
		r.Added += res.Stats.Added
		r.Removed += res.Stats.Removed
	}

	return r
}

func TestRun_PublishesChangedLists(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	publisher := mockpublish.NewMockPublisher(ctrl)

	gomock.InOrder(
		publisher.EXPECT().Sync(gomock.Any()).Return(true, nil),
		processor.EXPECT().ProcessAll(gomock.Any(), jobs).Return(report(
			blocklist.Result{Job: jobs[0], Changed: true, Stats: blocklist.Stats{Added: 2}},
			blocklist.Result{Job: jobs[1]},
		)),
		publisher.EXPECT().Publish(gomock.Any(), []string{"out/a.txt"}, "Update").Return(true, nil),
	)

	require.NoError(t, run(context.Background(), processor, publisher, nil, jobs, runOptions{CommitMessage: "Update"}))
}

func TestRun_SkipsWithoutRemoteChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	publisher := mockpublish.NewMockPublisher(ctrl)

	publisher.EXPECT().Sync(gomock.Any()).Return(false, nil)

	require.NoError(t, run(context.Background(), processor, publisher, nil, jobs, runOptions{}))
}

func TestRun_ForceProcessesWithoutRemoteChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	publisher := mockpublish.NewMockPublisher(ctrl)

	publisher.EXPECT().Sync(gomock.Any()).Return(false, nil)
	processor.EXPECT().ProcessAll(gomock.Any(), jobs).Return(report(
		blocklist.Result{Job: jobs[0]}, blocklist.Result{Job: jobs[1]},
	))

	require.NoError(t, run(context.Background(), processor, publisher, nil, jobs, runOptions{Force: true}))
}

func TestRun_SyncFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mockpublish.NewMockPublisher(ctrl)
	publisher.EXPECT().Sync(gomock.Any()).Return(false, serrors.With(serrors.ErrUnavailable, "offline"))

	err := run(context.Background(), mockblocklist.NewMockProcessor(ctrl), publisher, nil, jobs, runOptions{})
	require.ErrorIs(t, err, serrors.ErrUnavailable)
}

func TestRun_FailedListIsNotPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	publisher := mockpublish.NewMockPublisher(ctrl)

	publisher.EXPECT().Sync(gomock.Any()).Return(true, nil)
	processor.EXPECT().ProcessAll(gomock.Any(), jobs).Return(report(
		blocklist.Result{Job: jobs[0], Err: serrors.With(serrors.ErrLimitExceeded, "too many")},
		blocklist.Result{Job: jobs[1], Changed: true},
	))
	publisher.EXPECT().Publish(gomock.Any(), []string{"out/b.txt"}, gomock.Any()).Return(true, nil)

	err := run(context.Background(), processor, publisher, nil, jobs, runOptions{})
	require.ErrorContains(t, err, "1 of 2 lists failed")
}

func TestRun_PublishFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	publisher := mockpublish.NewMockPublisher(ctrl)

	publisher.EXPECT().Sync(gomock.Any()).Return(true, nil)
	processor.EXPECT().ProcessAll(gomock.Any(), jobs).Return(report(blocklist.Result{Job: jobs[0], Changed: true}))
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("rejected"))

	require.Error(t, run(context.Background(), processor, publisher, nil, jobs, runOptions{}))
}

func TestRun_WithoutPublisherWritesMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := mockblocklist.NewMockProcessor(ctrl)
	processor.EXPECT().ProcessAll(gomock.Any(), jobs).Return(report(blocklist.Result{Job: jobs[0], Changed: true}))

	recorder := metrics.New()
	recorder.Written("a", 3, 42, time.Unix(1700000000, 0))
	path := filepath.Join(t.TempDir(), "blocklist.prom")

	require.NoError(t, run(context.Background(), processor, nil, recorder, jobs, runOptions{MetricsPath: path}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `blocklist_entries{list="a"} 3`)
}

func TestLookupCommand(t *testing.T) {
	cfg := &config.Config{}
	cfg.Enrichment.Provider = config.ProviderNone
	cfg.Limits.MaxAnnotationLength = 63

	var out bytes.Buffer
	cmd := lookupCommand(cfg)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"192.0.2.7/24"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "192.0.2.0/24\n", out.String())

	cmd = lookupCommand(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"999.1.1.1"})
	require.ErrorIs(t, cmd.Execute(), serrors.ErrParse)
}

func TestConfigArgs(t *testing.T) {
	tests := []struct {
		args     []string
		expected []string
	}{
		{args: []string{"process", "--dry-run"}, expected: nil},
		{args: []string{"-c", "prod.yml", "process"}, expected: []string{"-c", "prod.yml"}},
		{args: []string{"process", "--config", "prod.yml"}, expected: []string{"-c", "prod.yml"}},
		{args: []string{"process", "--config=prod.yml"}, expected: []string{"-c", "prod.yml"}},
		{args: []string{"-c=prod.yml", "lookup", "192.0.2.1"}, expected: []string{"-c=prod.yml"}},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, configArgs(tt.args), "%v", tt.args)
	}
}
