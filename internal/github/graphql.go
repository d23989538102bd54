package github

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type GraphQLError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

func graphqlEndpoint(base *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, goerr.New("graphql: base url is nil")
	}

	u := *base
	u.RawQuery = ""
	u.Fragment = ""

	// GitHub.com REST base: https://api.github.com/
	// GitHub.com GraphQL:   https://api.github.com/graphql
	//
	// GHES REST base is typically: https://<host>/api/v3/
	// GHES GraphQL:               https://<host>/api/graphql
	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/api/v3") {
		u.Path = strings.TrimSuffix(path, "/v3") + "/graphql"
		return &u, nil
	}

	u.Path = "/graphql"
	return &u, nil
}

// DoGraphQL executes a GraphQL POST against the GitHub API using the same
// transport as the REST client, so auth, budgeting and verbose logging apply.
func DoGraphQL[T any](ctx context.Context, c *Client, req GraphQLRequest) (GraphQLResponse[T], error) {
	var out GraphQLResponse[T]
	if ctx == nil {
		return out, goerr.New("graphql: ctx is nil")
	}
	if c == nil || c.Client == nil || c.HTTP == nil {
		return out, goerr.New("graphql: client is nil")
	}

	endpoint, err := graphqlEndpoint(c.Client.BaseURL)
	if err != nil {
		return out, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return out, goerr.Wrap(err, "graphql: marshal request")
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return out, goerr.Wrap(err, "graphql: build request")
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	hresp, err := c.HTTP.Do(hreq)
	if err != nil {
		return out, goerr.Wrap(err, "graphql: do request", goerr.V("url", endpoint.String()))
	}
	defer hresp.Body.Close()

	if hresp.StatusCode < 200 || hresp.StatusCode >= 300 {
		return out, goerr.New("graphql: unexpected status", goerr.V("status", hresp.StatusCode), goerr.V("url", endpoint.String()))
	}

	if err := json.NewDecoder(hresp.Body).Decode(&out); err != nil {
		return GraphQLResponse[T]{}, goerr.Wrap(err, "graphql: decode response")
	}

	if len(out.Errors) > 0 {
		return GraphQLResponse[T]{}, goerr.New("graphql: "+out.Errors[0].Message, goerr.V("type", out.Errors[0].Type))
	}

	return out, nil
}
