package scanner

import (
	"context"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
)

type Dependabot struct {
	client *gh.Client
}

func (s *Dependabot) Feature() record.Feature {
	return record.FeatureDependabot
}

func (s *Dependabot) IsEnabled(ctx context.Context, ref record.Ref) (bool, error) {
	enabled, _, err := s.client.Client.Repositories.GetVulnerabilityAlerts(ctx, ref.Owner, ref.Name)
	if err != nil {
		if gh.IsNotAvailable(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to read vulnerability alert setting", goerr.V("repo", ref.FullName()))
	}
	return enabled, nil
}

func (s *Dependabot) CountAlerts(ctx context.Context, ref record.Ref) (int, error) {
	n, err := countPages(ctx, func(page int, after string) (int, *github.Response, error) {
		opts := &github.ListAlertsOptions{
			State:             github.Ptr("open"),
			ListCursorOptions: github.ListCursorOptions{PerPage: alertsPerPage, After: after},
		}
		if page != 0 {
			opts.ListOptions = github.ListOptions{Page: page}
		}
		alerts, resp, err := s.client.Client.Dependabot.ListRepoAlerts(ctx, ref.Owner, ref.Name, opts)
		return len(alerts), resp, err
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list dependabot alerts", goerr.V("repo", ref.FullName()))
	}
	return n, nil
}
