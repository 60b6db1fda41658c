package etrade

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tordrt/snaketrade/internal/tabular"
	"github.com/tordrt/snaketrade/internal/timefmt"
)

// dateAcquired is in epoch milliseconds, the Quick view's lastTradeTime in
// epoch seconds
const (
	positionAcquiredColumn  = "dateAcquired"
	positionLastTradeColumn = "lastTradeTime"
)

// PortfolioQuery filters the portfolio endpoint. All fields are optional.
type PortfolioQuery struct {
	Count          int
	SortBy         string
	SortOrder      string
	PageNumber     int
	View           string
	TotalsRequired bool
	LotsRequired   bool
}

// Params validates q and encodes it as query parameters
func (q PortfolioQuery) Params() (url.Values, error) {
	params := url.Values{}

	if q.Count < 0 {
		return nil, fmt.Errorf("invalid count %d", q.Count)
	}
	if q.Count > 0 {
		params.Set("count", strconv.Itoa(q.Count))
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		if q.SortOrder != "ASC" && q.SortOrder != "DESC" {
			return nil, fmt.Errorf("invalid sort order %q (must be ASC or DESC)", q.SortOrder)
		}
		params.Set("sortOrder", q.SortOrder)
	}
	if q.PageNumber > 0 {
		params.Set("pageNumber", strconv.Itoa(q.PageNumber))
	}
	if q.View != "" {
		params.Set("view", q.View)
	}
	if q.TotalsRequired {
		params.Set("totalsRequired", "true")
	}
	if q.LotsRequired {
		params.Set("lotsRequired", "true")
	}

	return params, nil
}

// Portfolio fetches the positions of an account.
//
// Every position row starts with the accountId of the portfolio it belongs
// to. Info holds one row per account portfolio, extended with the response's
// top-level metadata. Marker is the next page number, if any.
func (c *Client) Portfolio(ctx context.Context, acct Account, q PortfolioQuery) (Page, error) {
	params, err := q.Params()
	if err != nil {
		return Page{}, err
	}

	path := fmt.Sprintf("/v1/accounts/%s/portfolio.json", url.PathEscape(acct.AccountIDKey))
	r, err := c.get(ctx, path, params, "PortfolioResponse")
	if err != nil {
		return Page{}, err
	}

	env, err := tabular.Split(r, "AccountPortfolio")
	if err != nil {
		return Page{}, err
	}
	top := tabular.FlattenRecord(env.Meta, c.flatten)

	var positions []tabular.Table
	var infoRows []tabular.Row
	for _, ap := range env.Entities {
		entities, info, err := tabular.SplitAndAssemble(ap, "Position", c.flatten)
		if err != nil {
			return Page{}, err
		}

		accountID := stringField(ap, "accountId")
		if accountID == "" {
			accountID = acct.AccountID
		}
		positions = append(positions, entities.WithColumn("accountId", tabular.Scalar(accountID)))

		row := append(tabular.Row{}, info.Rows[0]...)
		row = append(row, top...)
		if c.flatten.Collisions == tabular.KeepFirst {
			// account level columns win over top-level ones of the same name
			row = row.Dedupe()
		}
		infoRows = append(infoRows, row)
	}
	if len(infoRows) == 0 {
		infoRows = append(infoRows, top)
	}

	page := Page{
		Entities: tabular.Concat(positions...),
		Info:     tabular.NewTable(infoRows...),
	}
	if err := convertTimestamps(page.Entities, positionAcquiredColumn); err != nil {
		return Page{}, err
	}
	if err := timefmt.SecondsColumn(page.Entities, positionLastTradeColumn); err != nil {
		return Page{}, err
	}
	page.Marker = markerFrom(page.Info, "nextPageNo")
	return page, nil
}
