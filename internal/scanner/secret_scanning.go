package scanner

import (
	"context"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
)

type SecretScanning struct {
	client *gh.Client
	meta   *Metadata
}

func (s *SecretScanning) Feature() record.Feature {
	return record.FeatureSecretScanning
}

// IsEnabled reads security_and_analysis from the repository metadata. Tokens
// without admin rights do not see that block; the alert listing is probed
// instead.
func (s *SecretScanning) IsEnabled(ctx context.Context, ref record.Ref) (bool, error) {
	repo, err := s.meta.Repository(ctx, ref)
	if err != nil {
		return false, err
	}
	if sa := repo.GetSecurityAndAnalysis(); sa != nil && sa.GetSecretScanning() != nil {
		return sa.GetSecretScanning().GetStatus() == "enabled", nil
	}

	_, _, err = s.client.Client.SecretScanning.ListAlertsForRepo(ctx, ref.Owner, ref.Name, &github.SecretScanningAlertListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		if gh.IsNotAvailable(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to probe secret scanning alerts", goerr.V("repo", ref.FullName()))
	}
	return true, nil
}

func (s *SecretScanning) CountAlerts(ctx context.Context, ref record.Ref) (int, error) {
	n, err := countPages(ctx, func(page int, after string) (int, *github.Response, error) {
		opts := &github.SecretScanningAlertListOptions{
			State:             "open",
			ListCursorOptions: github.ListCursorOptions{After: after},
			ListOptions:       github.ListOptions{Page: page, PerPage: alertsPerPage},
		}
		alerts, resp, err := s.client.Client.SecretScanning.ListAlertsForRepo(ctx, ref.Owner, ref.Name, opts)
		return len(alerts), resp, err
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list secret scanning alerts", goerr.V("repo", ref.FullName()))
	}
	return n, nil
}
