package etrade

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tordrt/snaketrade/internal/tabular"
	"github.com/tordrt/snaketrade/internal/timefmt"
)

// maxTransactionCount is the largest page size the transactions endpoint accepts
const maxTransactionCount = 50

var transactionTimeColumns = []string{"transactionDate", "postDate", "settlementDate"}

// TransactionQuery filters the transactions endpoint. All fields are optional.
type TransactionQuery struct {
	// StartDate and EndDate use the MMDDYYYY format
	StartDate string
	EndDate   string

	// SortOrder is ASC or DESC
	SortOrder string

	// Marker continues from a previous page
	Marker string

	// Count is the page size, 1 to 50
	Count int
}

// Params validates q and encodes it as query parameters. Invalid dates are
// rejected here so no request is sent.
func (q TransactionQuery) Params() (url.Values, error) {
	params := url.Values{}

	if q.StartDate != "" {
		if _, err := timefmt.CheckDateFormat(q.StartDate, timefmt.RequestDate, true); err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
		params.Set("startDate", q.StartDate)
	}

	if q.EndDate != "" {
		if _, err := timefmt.CheckDateFormat(q.EndDate, timefmt.RequestDate, true); err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
		params.Set("endDate", q.EndDate)
	}

	if q.SortOrder != "" {
		if q.SortOrder != "ASC" && q.SortOrder != "DESC" {
			return nil, fmt.Errorf("invalid sort order %q (must be ASC or DESC)", q.SortOrder)
		}
		params.Set("sortOrder", q.SortOrder)
	}

	if q.Marker != "" {
		params.Set("marker", q.Marker)
	}

	if q.Count != 0 {
		if q.Count < 0 || q.Count > maxTransactionCount {
			return nil, fmt.Errorf("invalid count %d (must be 1 to %d)", q.Count, maxTransactionCount)
		}
		params.Set("count", strconv.Itoa(q.Count))
	}

	return params, nil
}

// Page is one page of a list endpoint. Info carries the response metadata and
// Marker is empty on the last page.
type Page struct {
	Entities tabular.Table
	Info     tabular.Table
	Marker   string
}

// HasMore reports whether another page can be requested
func (p Page) HasMore() bool {
	return p.Marker != ""
}

// Transactions fetches one page of transactions
func (c *Client) Transactions(ctx context.Context, acct Account, q TransactionQuery) (Page, error) {
	params, err := q.Params()
	if err != nil {
		return Page{}, err
	}

	path := fmt.Sprintf("/v1/accounts/%s/transactions.json", url.PathEscape(acct.AccountIDKey))
	r, err := c.get(ctx, path, params, "TransactionListResponse")
	if err != nil {
		return Page{}, err
	}

	entities, info, err := tabular.SplitAndAssemble(r, "Transaction", c.flatten)
	if err != nil {
		return Page{}, err
	}
	if err := convertTimestamps(entities, transactionTimeColumns...); err != nil {
		return Page{}, err
	}

	page := Page{Entities: entities, Info: info, Marker: markerFrom(info, "marker")}
	if v, ok := info.Get(0, "moreTransactions"); ok && v.Scalar() == false {
		page.Marker = ""
	}
	return page, nil
}

// AllTransactions follows the pagination marker until the last page and
// returns every transaction in one table. Info holds one row per page.
func (c *Client) AllTransactions(ctx context.Context, acct Account, q TransactionQuery) (Page, error) {
	var entities, infos []tabular.Table
	seen := make(map[string]bool)

	for {
		page, err := c.Transactions(ctx, acct, q)
		if err != nil {
			return Page{}, err
		}
		entities = append(entities, page.Entities)
		infos = append(infos, page.Info)

		if !page.HasMore() {
			break
		}
		if seen[page.Marker] {
			return Page{}, fmt.Errorf("pagination marker %q repeated", page.Marker)
		}
		seen[page.Marker] = true
		q.Marker = page.Marker
	}

	return Page{
		Entities: tabular.Concat(entities...),
		Info:     tabular.Concat(infos...),
	}, nil
}

// TransactionDetails fetches a single transaction as a one-row table
func (c *Client) TransactionDetails(ctx context.Context, acct Account, transactionID string) (tabular.Table, error) {
	if transactionID == "" {
		return tabular.Table{}, fmt.Errorf("transaction id is required")
	}

	path := fmt.Sprintf("/v1/accounts/%s/transactions/%s.json",
		url.PathEscape(acct.AccountIDKey),
		url.PathEscape(transactionID))
	r, err := c.get(ctx, path, nil, "TransactionDetailsResponse")
	if err != nil {
		return tabular.Table{}, err
	}

	table := tabular.NewTable(tabular.FlattenRecord(r, c.flatten))
	if err := convertTimestamps(table, transactionTimeColumns...); err != nil {
		return tabular.Table{}, err
	}
	return table, nil
}
