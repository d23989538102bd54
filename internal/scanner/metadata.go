package scanner

import (
	"context"
	"strings"
	"sync"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// Metadata memoizes repository metadata. Repositories seen in an
// organization listing are seeded so secret scanning needs no extra call;
// anything else is fetched at most once, with concurrent lookups of the same
// repository collapsed into one request.
type Metadata struct {
	client *gh.Client
	repos  sync.Map
	group  singleflight.Group
}

func NewMetadata(client *gh.Client) *Metadata {
	return &Metadata{client: client}
}

func metadataKey(ref record.Ref) string {
	return strings.ToLower(ref.FullName())
}

// Seed stores listing results. Repositories without owner or name are ignored.
func (m *Metadata) Seed(repos ...*github.Repository) {
	for _, r := range repos {
		ref := record.Ref{Owner: r.GetOwner().GetLogin(), Name: r.GetName()}
		if ref.Owner == "" || ref.Name == "" {
			continue
		}
		m.repos.Store(metadataKey(ref), r)
	}
}

// Repository returns the memoized metadata for ref, fetching it on a miss.
func (m *Metadata) Repository(ctx context.Context, ref record.Ref) (*github.Repository, error) {
	key := metadataKey(ref)
	if v, ok := m.repos.Load(key); ok {
		return v.(*github.Repository), nil
	}
	if m.client == nil || m.client.Client == nil {
		return nil, goerr.New("repository metadata: nil GitHub client", goerr.V("repo", ref.FullName()))
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		repo, _, err := m.client.Client.Repositories.Get(ctx, ref.Owner, ref.Name)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get repository", goerr.V("repo", ref.FullName()))
		}
		m.repos.Store(key, repo)
		return repo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*github.Repository), nil
}
