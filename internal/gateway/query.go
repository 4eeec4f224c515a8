package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
	singleObjectMedia    = "application/vnd.pgrst.object+json"
)

// Query is a PostgREST request against one relation. Builder methods
// mutate and return the receiver.
type Query struct {
	client *Client
	table  string
	params url.Values
	single bool
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: url.Values{}}
}

// Select sets the projected columns, including embedded joins.
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters column = value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Neq filters column <> value.
func (q *Query) Neq(column, value string) *Query {
	q.params.Add(column, "neq."+value)
	return q
}

// In filters column to one of values.
func (q *Query) In(column string, values []string) *Query {
	q.params.Add(column, "in.("+strings.Join(values, ",")+")")
	return q
}

// ILike filters column by a case-insensitive pattern. Use * as wildcard.
func (q *Query) ILike(column, pattern string) *Query {
	q.params.Add(column, "ilike."+pattern)
	return q
}

// Or adds a disjunction of raw filter expressions, e.g. "title.ilike.*x*".
func (q *Query) Or(filters ...string) *Query {
	q.params.Add("or", "("+strings.Join(filters, ",")+")")
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Single expects exactly one row and decodes it as an object.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) path() string {
	return "/rest/v1/" + q.table
}

func (q *Query) headers(prefer string) map[string]string {
	h := map[string]string{}
	if prefer != "" {
		h["Prefer"] = prefer
	}
	if q.single {
		h["Accept"] = singleObjectMedia
	}
	return h
}

// Get runs the query and decodes the result into out.
func (q *Query) Get(ctx context.Context, out any) error {
	data, err := q.client.do(ctx, request{
		method:  http.MethodGet,
		path:    q.path(),
		query:   q.params,
		headers: q.headers(""),
	})
	if err != nil {
		return err
	}
	return decode(data, out, q.table)
}

// Insert creates row and decodes the stored representation into out.
// A nil out requests a minimal response.
func (q *Query) Insert(ctx context.Context, row any, out any) error {
	return q.write(ctx, http.MethodPost, row, out)
}

// Update patches the rows matched by the filters.
func (q *Query) Update(ctx context.Context, changes any, out any) error {
	return q.write(ctx, http.MethodPatch, changes, out)
}

// Delete removes the rows matched by the filters.
func (q *Query) Delete(ctx context.Context) error {
	_, err := q.client.do(ctx, request{
		method:  http.MethodDelete,
		path:    q.path(),
		query:   q.params,
		headers: q.headers(preferMinimal),
	})
	return err
}

func (q *Query) write(ctx context.Context, method string, body any, out any) error {
	prefer := preferMinimal
	if out != nil {
		prefer = preferRepresentation
	}
	data, err := q.client.do(ctx, request{
		method:  method,
		path:    q.path(),
		query:   q.params,
		body:    body,
		headers: q.headers(prefer),
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(data, out, q.table)
}

func decode(data []byte, out any, what string) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
