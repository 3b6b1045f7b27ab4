package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE
// ============================================================

func (c *Client) doPost(ctx context.Context, path string, data any) ([]byte, error) {
	return c.write(ctx, http.MethodPost, path, data, "return=representation")
}

// doUpsert inserts or merges on the table's primary key.
func (c *Client) doUpsert(ctx context.Context, path string, data any) ([]byte, error) {
	return c.write(ctx, http.MethodPost, path, data, "resolution=merge-duplicates,return=representation")
}

func (c *Client) doPatch(ctx context.Context, path string, data any) error {
	_, err := c.write(ctx, http.MethodPatch, path, data, "return=minimal")
	return err
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

func (c *Client) write(ctx context.Context, method, path string, data any, prefer string) ([]byte, error) {
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, bytes.NewReader(jsonBody), prefer)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ============================================================
// PostgREST query strings
// ============================================================

// query builds "table?col=op.value&..." paths. Values are URL-escaped.
type query struct {
	table  string
	params []string
}

func from(table string) *query {
	return &query{table: table}
}

func (q *query) filter(col, op, value string) *query {
	q.params = append(q.params, col+"="+op+"."+url.QueryEscape(value))
	return q
}

func (q *query) eq(col, value string) *query  { return q.filter(col, "eq", value) }
func (q *query) gte(col, value string) *query { return q.filter(col, "gte", value) }
func (q *query) lte(col, value string) *query { return q.filter(col, "lte", value) }

// ilike matches value as a case-insensitive substring.
func (q *query) ilike(col, value string) *query {
	return q.filter(col, "ilike", "*"+escapeLike(value)+"*")
}

func (q *query) order(terms ...string) *query {
	q.params = append(q.params, "order="+strings.Join(terms, ","))
	return q
}

func (q *query) limit(n int) *query {
	if n > 0 {
		q.params = append(q.params, "limit="+strconv.Itoa(n))
	}
	return q
}

func (q *query) offset(n int) *query {
	if n > 0 {
		q.params = append(q.params, "offset="+strconv.Itoa(n))
	}
	return q
}

func (q *query) onConflict(col string) *query {
	q.params = append(q.params, "on_conflict="+col)
	return q
}

func (q *query) String() string {
	if len(q.params) == 0 {
		return q.table
	}
	return q.table + "?" + strings.Join(q.params, "&")
}

// escapeLike neutralizes LIKE wildcards typed by the user.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `\*`)
	return r.Replace(s)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isEmpty(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || string(trimmed) == "[]"
}
