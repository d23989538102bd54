// Package scanner queries the GitHub security features of one repository:
// whether each is enabled and how many open alerts it reports.
package scanner

import (
	"context"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"

	"github.com/google/go-github/v81/github"
)

const alertsPerPage = 100

// Scanner answers the two questions asked of every feature.
type Scanner interface {
	Feature() record.Feature
	IsEnabled(ctx context.Context, ref record.Ref) (bool, error)
	CountAlerts(ctx context.Context, ref record.Ref) (int, error)
}

// NewGitHubScanners returns the scanners for every feature, in record.Features order.
func NewGitHubScanners(client *gh.Client, meta *Metadata) []Scanner {
	if meta == nil {
		meta = NewMetadata(client)
	}
	return []Scanner{
		&CodeScanning{client: client},
		&Dependabot{client: client},
		&SecretScanning{client: client, meta: meta},
	}
}

// pageFunc fetches one page of alerts and returns how many it held.
type pageFunc func(page int, after string) (int, *github.Response, error)

// countPages walks every page, following either page-number or cursor links,
// and sums the items seen.
func countPages(ctx context.Context, fetch pageFunc) (int, error) {
	total := 0
	page, after := 0, ""
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, resp, err := fetch(page, after)
		if err != nil {
			return 0, err
		}
		total += n
		switch {
		case resp == nil:
			return total, nil
		case resp.After != "":
			after = resp.After
		case resp.NextPage != 0:
			page = resp.NextPage
		default:
			return total, nil
		}
	}
}
