package blocklist

import (
	"context"
)

//go:generate mockgen -package mockblocklist -source=interface.go -destination=mock/mockblocklist.go *
type Processor interface {
	// Process builds the published list for one job. It never panics on bad
	// input; all failures are reported through Result.Err.
	Process(ctx context.Context, job Job) Result
	// ProcessAll processes the jobs in order. A failure of one job does not
	// stop the others, but a cancelled context does.
	ProcessAll(ctx context.Context, jobs []Job) Report
}
