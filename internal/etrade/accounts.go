package etrade

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// Account identifies one brokerage account from the account list
type Account struct {
	AccountID       string
	AccountIDKey    string
	AccountMode     string
	AccountDesc     string
	AccountName     string
	AccountType     string
	InstitutionType string
	AccountStatus   string
}

func accountFromRecord(r *tabular.Record) Account {
	return Account{
		AccountID:       stringField(r, "accountId"),
		AccountIDKey:    stringField(r, "accountIdKey"),
		AccountMode:     stringField(r, "accountMode"),
		AccountDesc:     stringField(r, "accountDesc"),
		AccountName:     stringField(r, "accountName"),
		AccountType:     stringField(r, "accountType"),
		InstitutionType: stringField(r, "institutionType"),
		AccountStatus:   stringField(r, "accountStatus"),
	}
}

// FindAccount returns the account whose id or id key matches id
func FindAccount(accounts []Account, id string) (Account, error) {
	for _, a := range accounts {
		if a.AccountID == id || a.AccountIDKey == id {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %q not found", id)
}

// ListAccounts returns the accounts of the authorized user, both as typed
// values and as a table
func (c *Client) ListAccounts(ctx context.Context) ([]Account, tabular.Table, error) {
	r, err := c.get(ctx, "/v1/accounts/list.json", nil, "AccountListResponse")
	if err != nil {
		return nil, tabular.Table{}, err
	}

	env := tabular.Envelope{Meta: tabular.NewRecord()}
	if v, ok := r.Get("Accounts"); ok {
		if inner, ok := v.Record(); ok {
			env, err = tabular.Split(inner, "Account")
			if err != nil {
				return nil, tabular.Table{}, err
			}
		}
	}

	accounts := make([]Account, 0, len(env.Entities))
	for _, e := range env.Entities {
		accounts = append(accounts, accountFromRecord(e))
	}

	table, _ := tabular.Assemble(env, c.flatten)
	return accounts, table, nil
}

// Balance returns the balance of an account as a single-row table.
// accountType is optional.
func (c *Client) Balance(ctx context.Context, acct Account, accountType string) (tabular.Table, error) {
	params := url.Values{}
	params.Set("instType", acct.InstitutionType)
	params.Set("realTimeNAV", "true")
	if accountType != "" {
		params.Set("accountType", accountType)
	}

	path := fmt.Sprintf("/v1/accounts/%s/balance.json", url.PathEscape(acct.AccountIDKey))
	r, err := c.get(ctx, path, params, "BalanceResponse")
	if err != nil {
		return tabular.Table{}, err
	}

	table := tabular.NewTable(tabular.FlattenRecord(r, c.flatten))
	if err := convertTimestamps(table, "asOfDate"); err != nil {
		return tabular.Table{}, err
	}
	return table, nil
}
