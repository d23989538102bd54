// Package discovery enumerates the organizations of an enterprise and the
// repositories of an organization, in API order.
package discovery

import (
	"context"
	"strings"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"
	"ghasexport/internal/scanner"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
)

const listPageSize = 100

// Lister lists organizations and repositories over the GitHub API.
type Lister struct {
	client *gh.Client
	meta   *scanner.Metadata
	filter Filter
}

// NewLister returns a Lister. Listed repositories are seeded into meta when it
// is not nil.
func NewLister(client *gh.Client, meta *scanner.Metadata, filter Filter) *Lister {
	return &Lister{client: client, meta: meta, filter: filter}
}

// ListRepositories returns the organization's repositories in listing order
// after filtering. It is a single logical call: every page is read before
// anything is returned.
func (l *Lister) ListRepositories(ctx context.Context, org string) ([]record.Ref, error) {
	if l.client == nil || l.client.Client == nil {
		return nil, goerr.New("list repositories: nil GitHub client")
	}

	var repos []*github.Repository
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: listPageSize},
	}
	for {
		page, resp, err := l.client.Client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list organization repositories", goerr.V("org", org))
		}
		repos = append(repos, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	repos = l.filter.Apply(repos)
	if l.meta != nil {
		l.meta.Seed(repos...)
	}

	refs := make([]record.Ref, 0, len(repos))
	for _, r := range repos {
		owner := r.GetOwner().GetLogin()
		if owner == "" {
			owner = org
		}
		refs = append(refs, record.Ref{Owner: owner, Name: r.GetName()})
	}
	return refs, nil
}

const enterpriseOrganizationsQuery = `query($slug: String!, $cursor: String) {
  enterprise(slug: $slug) {
    organizations(first: 100, after: $cursor) {
      nodes { login }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

type enterpriseOrganizations struct {
	Enterprise *struct {
		Organizations struct {
			Nodes []struct {
				Login string `json:"login"`
			} `json:"nodes"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"organizations"`
	} `json:"enterprise"`
}

// ListOrganizations returns the logins of every organization in the
// enterprise, in API order.
func (l *Lister) ListOrganizations(ctx context.Context, enterprise string) ([]string, error) {
	enterprise = strings.TrimSpace(enterprise)
	if enterprise == "" {
		return nil, goerr.New("list organizations: enterprise is required")
	}

	var orgs []string
	var cursor any
	for {
		resp, err := gh.DoGraphQL[enterpriseOrganizations](ctx, l.client, gh.GraphQLRequest{
			Query:     enterpriseOrganizationsQuery,
			Variables: map[string]any{"slug": enterprise, "cursor": cursor},
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list enterprise organizations", goerr.V("enterprise", enterprise))
		}
		if resp.Data.Enterprise == nil {
			return nil, goerr.New("enterprise not found", goerr.V("enterprise", enterprise))
		}

		conn := resp.Data.Enterprise.Organizations
		for _, n := range conn.Nodes {
			if n.Login != "" {
				orgs = append(orgs, n.Login)
			}
		}
		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
			break
		}
		cursor = conn.PageInfo.EndCursor
	}
	return orgs, nil
}
