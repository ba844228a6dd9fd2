package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cubeclient/domain"
)

// ExecuteBatch runs independent queries concurrently against the same
// deployment and returns results in input order. The first terminal error
// cancels the remaining executions. Executions share nothing but the
// client's transport and optional rate limiter, so no locking is needed.
func (c *Client) ExecuteBatch(ctx context.Context, creds domain.Credentials, queries []*domain.Query) ([]*domain.QueryResult, error) {
	// Fail fast on any invalid query before issuing a single request.
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]*domain.QueryResult, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := c.Execute(ctx, creds, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
