package syncer

import "fmt"

// Result aggregates the outcome of one orchestration step. Per-record
// failures are captured here instead of aborting the batch.
type Result struct {
	Created int
	Updated int
	Skipped int
	Failed  int
	Errors  []string
}

// Merge folds another step's result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *Result) fail(key string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", key, err))
}

func (r *Result) skip(key string, err error) {
	r.Skipped++
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", key, err))
	}
}

// ListOptions controls a list sync.
type ListOptions struct {
	// Limit caps how many raw records are fetched; zero means the
	// portal default.
	Limit int
	// OldestFirst flips the fetch order for backfills.
	OldestFirst bool
}

// DetailOptions controls a detail backfill pass.
type DetailOptions struct {
	// Limit caps how many records get their detail fetched in one pass.
	Limit int
	// ForceAll refetches detail even for records that already have
	// lines. The overwrite is idempotent.
	ForceAll bool
}

// FullSyncOptions controls a composed list -> detail -> process run.
type FullSyncOptions struct {
	Limit        int
	ProcessStock bool
}
