package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fclairamb/expkit/internal/apperrors"
)

// Ping checks that the tracking server is reachable and the credentials are
// accepted, by searching for at most one experiment.
func (c *Client) Ping(ctx context.Context) error {
	var resp searchExperimentsResponse
	req := searchExperimentsRequest{MaxResults: 1}
	if err := c.do(ctx, http.MethodPost, "/experiments/search", req, &resp); err != nil {
		return fmt.Errorf("search experiments: %w", err)
	}
	return nil
}

// ExperimentExistsByName reports whether an experiment with the given name
// exists on the tracking server.
func (c *Client) ExperimentExistsByName(ctx context.Context, name string) (bool, error) {
	path := "/experiments/get-by-name?experiment_name=" + url.QueryEscape(name)

	var resp getExperimentResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return false, nil
		}
		return false, fmt.Errorf("get experiment by name: %w", err)
	}
	return true, nil
}

// ExperimentExistsByID reports whether an experiment with the given ID
// exists on the tracking server.
func (c *Client) ExperimentExistsByID(ctx context.Context, id string) (bool, error) {
	path := "/experiments/get?experiment_id=" + url.QueryEscape(id)

	var resp getExperimentResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return false, nil
		}
		return false, fmt.Errorf("get experiment: %w", err)
	}
	return true, nil
}

// ExperimentExists dispatches on whichever of name or id is set. Exactly one
// must be provided.
func (c *Client) ExperimentExists(ctx context.Context, name, id string) (bool, error) {
	if (name == "") == (id == "") {
		return false, apperrors.ErrExperimentRef
	}
	if name != "" {
		return c.ExperimentExistsByName(ctx, name)
	}
	return c.ExperimentExistsByID(ctx, id)
}
