package gateway

import (
	"context"
	"net/http"
)

// RPC calls the stored procedure fn with keyword params and decodes the
// result into out.
func (c *Client) RPC(ctx context.Context, fn string, params any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + fn,
		body:   params,
	})
	if err != nil {
		return err
	}
	return decode(data, out, fn)
}
