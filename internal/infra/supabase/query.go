package supabase

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// query builds a PostgREST path with filters, ordering and paging.
type query struct {
	table  string
	params url.Values
}

func from(table string) *query {
	return &query{table: table, params: url.Values{}}
}

func (q *query) sel(columns string) *query {
	q.params.Set("select", columns)
	return q
}

func (q *query) eq(column, value string) *query {
	q.params.Add(column, "eq."+value)
	return q
}

func (q *query) in(column string, values []string) *query {
	q.params.Add(column, "in.("+strings.Join(values, ",")+")")
	return q
}

func (q *query) isNull(column string) *query {
	q.params.Add(column, "is.null")
	return q
}

func (q *query) gte(column string, t time.Time) *query {
	q.params.Add(column, "gte."+t.UTC().Format(time.RFC3339))
	return q
}

func (q *query) order(expr string) *query {
	q.params.Set("order", expr)
	return q
}

func (q *query) limit(n int) *query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// page applies 1-based pagination. A non-positive size leaves the query unbounded.
func (q *query) page(page, size int) *query {
	if size <= 0 {
		return q
	}
	if page < 1 {
		page = 1
	}
	q.params.Set("limit", strconv.Itoa(size))
	q.params.Set("offset", strconv.Itoa((page-1)*size))
	return q
}

func (q *query) String() string {
	if len(q.params) == 0 {
		return q.table
	}
	return q.table + "?" + q.params.Encode()
}

func toStrings[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
