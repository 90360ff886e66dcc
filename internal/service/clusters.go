package service

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/linkmap/internal/cluster"
)

// Summary sizes for previews.
const (
	DefaultSummaryTop = 5
	MaxSummaryTop     = 50
)

// ClusterPreview is a preview result with per-cluster summaries.
type ClusterPreview struct {
	Domain string `json:"domain"`
	*cluster.Result
	Clusters []cluster.ClusterSummary `json:"clusters"`
}

// CommitResult reports a commit.
type CommitResult struct {
	Domain string `json:"domain"`
	*cluster.CommitPlan
	// Applied is the number of rows the store changed.
	Applied int `json:"applied"`
}

// ClearResult reports a clear.
type ClearResult struct {
	Domain  string `json:"domain"`
	Cleared int    `json:"cleared"`
}

// StatusResult is the clustering status of a domain.
type StatusResult struct {
	Domain string `json:"domain"`
	cluster.Status
}

// PreviewClusters clusters the domain's items without persisting anything.
// summaryTop is the number of members listed per cluster; values outside
// [1, MaxSummaryTop] fall back to DefaultSummaryTop or the maximum.
func (s *Service) PreviewClusters(ctx context.Context, domain string, opts cluster.Options, summaryTop int) (res *ClusterPreview, err error) {
	domain, finish, err := s.begin(OpPreviewClusters, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err,
				slog.Int("k_effective", res.KEffective),
				slog.Int("eligible", res.Eligible),
				slog.Int("iterations", res.Iterations))
			return
		}
		finish(err)
	}()

	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}
	result, err := cluster.Preview(items, opts)
	if err != nil {
		return nil, err
	}
	s.checkClusterResult(OpPreviewClusters, domain, result)

	return &ClusterPreview{
		Domain:   domain,
		Result:   result,
		Clusters: cluster.Summarize(items, result, clampTop(summaryTop)),
	}, nil
}

// CommitClusters clusters the domain and persists the assignments in one
// transaction while holding the domain lock. With no eligible items the
// stored ids are left untouched.
func (s *Service) CommitClusters(ctx context.Context, domain string, opts cluster.Options) (res *CommitResult, err error) {
	domain, finish, err := s.begin(OpCommitClusters, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err,
				slog.Int("k_effective", res.KEffective),
				slog.Int("updated", res.Updated),
				slog.Int("reset", res.Reset))
			return
		}
		finish(err)
	}()

	release, err := s.locker.Lock(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}
	plan, err := cluster.Commit(items, opts)
	if err != nil {
		return nil, err
	}
	s.checkClusterResult(OpCommitClusters, domain, plan.Result)

	res = &CommitResult{Domain: domain, CommitPlan: plan}
	if len(plan.Changes) == 0 {
		return res, nil
	}

	writes := make(map[string]*int, len(plan.Changes))
	for _, c := range plan.Changes {
		writes[c.ItemID] = c.To
	}
	applied, err := s.store.ApplyClusterIDs(ctx, domain, writes)
	if err != nil {
		return nil, err
	}
	res.Applied = applied
	return res, nil
}

// ClearClusters resets every cluster id of the domain to null. Clearing an
// already cleared domain changes nothing.
func (s *Service) ClearClusters(ctx context.Context, domain string) (res *ClearResult, err error) {
	domain, finish, err := s.begin(OpClearClusters, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err, slog.Int("cleared", res.Cleared))
			return
		}
		finish(err)
	}()

	release, err := s.locker.Lock(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}
	res = &ClearResult{Domain: domain}
	if len(cluster.Clear(items)) == 0 {
		return res, nil
	}

	cleared, err := s.store.ClearClusterIDs(ctx, domain)
	if err != nil {
		return nil, err
	}
	res.Cleared = cleared
	return res, nil
}

// Status summarizes the domain's items and cluster ids.
func (s *Service) Status(ctx context.Context, domain string) (res *StatusResult, err error) {
	domain, finish, err := s.begin(OpClusterStatus, domain)
	if err != nil {
		return nil, err
	}
	defer func() { finish(err) }()

	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Domain: domain, Status: cluster.StatusOf(items)}, nil
}

func (s *Service) checkClusterResult(op, domain string, res *cluster.Result) {
	s.metrics.AddItems(op, res.Eligible)
	if res.NoEligibleItems {
		s.warnNoEligible(op, domain, res.Excluded.Total())
		return
	}
	if !res.Converged {
		s.warnNotConverged(op, domain, "kmeans", res.Iterations)
	}
}

func clampTop(n int) int {
	switch {
	case n <= 0:
		return DefaultSummaryTop
	case n > MaxSummaryTop:
		return MaxSummaryTop
	default:
		return n
	}
}
