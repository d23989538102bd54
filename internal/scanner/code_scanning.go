package scanner

import (
	"context"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
)

type CodeScanning struct {
	client *gh.Client
}

func (s *CodeScanning) Feature() record.Feature {
	return record.FeatureCodeScanning
}

// IsEnabled probes for analyses. A repository without code scanning answers
// 404 (no analysis) or 403 (not enabled or not licensed).
func (s *CodeScanning) IsEnabled(ctx context.Context, ref record.Ref) (bool, error) {
	_, _, err := s.client.Client.CodeScanning.ListAnalysesForRepo(ctx, ref.Owner, ref.Name, &github.AnalysesListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		if gh.IsNotAvailable(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to list code scanning analyses", goerr.V("repo", ref.FullName()))
	}
	return true, nil
}

func (s *CodeScanning) CountAlerts(ctx context.Context, ref record.Ref) (int, error) {
	n, err := countPages(ctx, func(page int, after string) (int, *github.Response, error) {
		opts := &github.AlertListOptions{
			State:             "open",
			ListOptions:       github.ListOptions{Page: page, PerPage: alertsPerPage},
			ListCursorOptions: github.ListCursorOptions{After: after},
		}
		alerts, resp, err := s.client.Client.CodeScanning.ListAlertsForRepo(ctx, ref.Owner, ref.Name, opts)
		return len(alerts), resp, err
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list code scanning alerts", goerr.V("repo", ref.FullName()))
	}
	return n, nil
}
