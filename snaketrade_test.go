package snaketrade

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/snaketrade/internal/etrade"
	"github.com/tordrt/snaketrade/internal/tabular"
)

const accountListJSON = `{
  "AccountListResponse": {
    "Accounts": {
      "Account": [
        {"accountId": "840104290", "accountIdKey": "dBZOKt9xDrtRSAOl4MSiiA", "accountDesc": "Brokerage", "institutionType": "BROKERAGE"},
        {"accountId": "840104291", "accountIdKey": "JIVoLnFKQPfTc2SQKBTObA", "accountDesc": "Roth IRA", "institutionType": "BROKERAGE"}
      ]
    }
  }
}`

func newFakeAPI(t *testing.T) *Client {
	t.Helper()
	transactions, err := os.ReadFile(filepath.Join("internal", "tabular", "testdata", "transaction_list_response.json"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts/list.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(accountListJSON))
	})
	mux.HandleFunc("/v1/accounts/dBZOKt9xDrtRSAOl4MSiiA/transactions.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(transactions)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return etrade.NewClient(srv.URL, srv.Client())
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	client := newFakeAPI(t)

	tables, err := Fetch(ctx, client, ReportAccounts, nil)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "accounts", tables[0].Name)
	assert.Equal(t, 2, tables[0].Table.Len())

	tables, err = Fetch(ctx, client, ReportTransactions, &Options{AccountID: "840104290"})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "transactions", tables[0].Name)
	assert.Equal(t, 2, tables[0].Table.Len())
	assert.Equal(t, "transactions_info", tables[1].Name)
	assert.Equal(t, 1, tables[1].Table.Len())

	tables, err = Fetch(ctx, client, ReportTransactions, &Options{
		AccountID:     "dBZOKt9xDrtRSAOl4MSiiA",
		ExcludeTables: []string{"transactions_info"},
	})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "transactions", tables[0].Name)
}

func TestFetchErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeAPI(t)

	_, err := Fetch(ctx, nil, ReportAccounts, nil)
	assert.ErrorContains(t, err, "client is required")

	_, err = Fetch(ctx, client, Report("quotes"), nil)
	assert.ErrorContains(t, err, "unknown report")

	_, err = Fetch(ctx, client, ReportBalance, nil)
	assert.ErrorContains(t, err, "account id is required")

	_, err = Fetch(ctx, client, ReportPortfolio, &Options{AccountID: "404"})
	assert.ErrorContains(t, err, `account "404" not found`)

	var formatErr *FormatError
	_, err = Fetch(ctx, client, ReportTransactions, &Options{
		AccountID:    "840104290",
		Transactions: TransactionQuery{StartDate: "2024-03-01"},
	})
	assert.ErrorAs(t, err, &formatErr)
}

func TestFetchAndFormat(t *testing.T) {
	ctx := context.Background()
	client := newFakeAPI(t)

	var buf bytes.Buffer
	err := FetchAndFormat(ctx, client, ReportAccounts, nil, &OutputOptions{Writer: &buf, Format: "markdown"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "## accounts")
	assert.Contains(t, buf.String(), "| 840104290 | dBZOKt9xDrtRSAOl4MSiiA | Brokerage | BROKERAGE |")

	dbPath := filepath.Join(t.TempDir(), "trades.db")
	err = FetchAndFormat(ctx, client, ReportTransactions, &Options{AccountID: "840104290"},
		&OutputOptions{DatabaseURL: "sqlite://" + dbPath})
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestFormatTables(t *testing.T) {
	tables := []NamedTable{{
		Name:  "balance",
		Table: tabular.NewTable(tabular.Row{{Name: "accountId", Value: tabular.Scalar("840104290")}}),
	}}

	var buf bytes.Buffer
	require.NoError(t, FormatTables(tables, &OutputOptions{Writer: &buf}))
	assert.True(t, strings.HasPrefix(buf.String(), "TABLE balance (1 row)"))

	buf.Reset()
	require.NoError(t, FormatTables(tables, &OutputOptions{Writer: &buf, Format: "csv"}))
	assert.Equal(t, "accountId\n840104290\n", buf.String())

	dir := t.TempDir()
	require.NoError(t, FormatTables(tables, &OutputOptions{OutputDir: dir, Format: "markdown"}))
	_, err := os.Stat(filepath.Join(dir, "balance.md"))
	assert.NoError(t, err)

	assert.Error(t, FormatTables(tables, &OutputOptions{Writer: &buf, Format: "html"}))
}

func TestStoreTables(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "trades.db")
	tables := []NamedTable{
		{Name: "a", Table: tabular.NewTable(tabular.Row{{Name: "x", Value: tabular.Scalar(int64(1))}})},
		{Name: "b", Table: tabular.NewTable(
			tabular.Row{{Name: "y", Value: tabular.Scalar("one")}},
			tabular.Row{{Name: "y", Value: tabular.Scalar("two")}},
		)},
	}

	n, err := StoreTables(ctx, url, tables, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = StoreTables(ctx, url, tables, ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = StoreTables(ctx, "redis://localhost", tables, ModeReplace)
	assert.ErrorContains(t, err, "invalid database URL scheme")
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), &Session{Env: "staging"})
	assert.Error(t, err)

	client, err := NewClient(context.Background(), &Session{Env: Sandbox, AccessToken: "a", AccessSecret: "b"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestFilterExcludedTables(t *testing.T) {
	all := []NamedTable{{Name: "transactions"}, {Name: "transactions_info"}, {Name: "positions"}}

	tests := []struct {
		name        string
		excludeList []string
		wantTables  []string
	}{
		{
			name:        "exclude single table",
			excludeList: []string{"transactions_info"},
			wantTables:  []string{"transactions", "positions"},
		},
		{
			name:        "exclude multiple tables",
			excludeList: []string{"transactions", "positions"},
			wantTables:  []string{"transactions_info"},
		},
		{
			name:        "exclude no tables",
			excludeList: []string{},
			wantTables:  []string{"transactions", "transactions_info", "positions"},
		},
		{
			name:        "exclude non-existent table",
			excludeList: []string{"quotes"},
			wantTables:  []string{"transactions", "transactions_info", "positions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterExcludedTables(all, tt.excludeList)
			names := make([]string, len(got))
			for i, table := range got {
				names[i] = table.Name
			}
			assert.Equal(t, tt.wantTables, names)
		})
	}
}
