package blocklist_test

import (
	"blocklist/internal/blocklist"
	"blocklist/pkg/domain"
	"blocklist/pkg/enricher"
	mockenricher "blocklist/pkg/enricher/mock"
	"blocklist/pkg/serrors"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEnrich(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockenricher.NewMockClient(ctrl)

	client.EXPECT().Lookup(gomock.Any(), "10.0.0.0").Return("private", nil).Times(1)
	client.EXPECT().Lookup(gomock.Any(), "192.0.2.1").
		Return("", serrors.With(serrors.ErrUnavailable, "timeout")).Times(1)

	var observed, failed atomic.Int32
	results, err := blocklist.Enrich(context.Background(), client, []domain.Entry{entryC, entryA}, 2,
		func(_ time.Duration, ok bool) {
			observed.Add(1)
			if !ok {
				failed.Add(1)
			}
		})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, enricher.Success("private"), results[entryC])
	require.ErrorIs(t, results[entryA].Err, serrors.ErrUnavailable)
	require.EqualValues(t, 2, observed.Load())
	require.EqualValues(t, 1, failed.Load())
}

func TestEnrich_NothingPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	results, err := blocklist.Enrich(context.Background(), mockenricher.NewMockClient(ctrl), nil, 4, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

type slowClient struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *slowClient) Lookup(ctx context.Context, addr string) (string, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-time.After(10 * time.Millisecond):
		return "seen " + addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestEnrich_BoundedConcurrency(t *testing.T) {
	client := &slowClient{}
	pending := entries(hosts("192.0.2", 12)...)

	results, err := blocklist.Enrich(context.Background(), client, pending, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 12)
	require.LessOrEqual(t, client.peak.Load(), int32(3))
	require.Equal(t, "seen 192.0.2.7", results[domain.MustParseEntry("192.0.2.7")].Annotation)
}

func TestEnrich_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := blocklist.Enrich(ctx, mockenricher.NewMockClient(ctrl), []domain.Entry{entryA}, 1, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, results)
}

func TestApplyResults(t *testing.T) {
	set := domain.EntrySet{entryA: "", entryB: "", entryC: "kept"}
	failures := blocklist.ApplyResults(set, map[domain.Entry]enricher.Result{
		entryA: enricher.Success("found"),
		entryB: enricher.Failure(errors.New("boom")),
	})

	require.Equal(t, 1, failures)
	require.Equal(t, domain.EntrySet{entryA: "found", entryB: "", entryC: "kept"}, set)
}
