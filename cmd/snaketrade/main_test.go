package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/snaketrade/internal/auth"
	"github.com/tordrt/snaketrade/internal/store"
)

const accountListJSON = `{"AccountListResponse": {"Accounts": {"Account": [
  {"accountId": "840104290", "accountIdKey": "dBZOKt9xDrtRSAOl4MSiiA", "institutionType": "BROKERAGE"}
]}}}`

const balanceJSON = `{"BalanceResponse": {
  "accountId": "840104290",
  "accountType": "PCASH",
  "Cash": {"moneyMktBalance": 0}
}}`

const repeatedBalanceJSON = `{"BalanceResponse": {
  "accountId": "840104290",
  "Computed": {"cashBalance": 5, "RealTimeValues": {"cashBalance": 7}}
}}`

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: nil},
		{input: "transactions_info", want: []string{"transactions_info"}},
		{input: " positions , portfolio_info ,", want: []string{"positions", "portfolio_info"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseList(tt.input), tt.input)
	}
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	code, err := prompt(strings.NewReader(" ABC12 \n"), &out, "Verification code: ")
	require.NoError(t, err)
	assert.Equal(t, "ABC12", code)
	assert.Equal(t, "Verification code: ", out.String())

	_, err = prompt(strings.NewReader(""), &out, "Verification code: ")
	assert.ErrorContains(t, err, "no verification code")
}

// writeSetup writes a config file and a saved session, returning the config path
func writeSetup(t *testing.T, sessionEnv auth.Env, extra string) string {
	t.Helper()
	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "session.yaml")
	require.NoError(t, auth.SaveSession(sessionPath, &auth.Session{
		Env:            sessionEnv,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		AccessToken:    "token",
		AccessSecret:   "token-secret",
	}))

	configPath := filepath.Join(dir, "snaketrade.yaml")
	content := fmt.Sprintf("env: sandbox\nsession_file: %s\n%s", sessionPath, extra)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func TestResolveSettings(t *testing.T) {
	configPath := writeSetup(t, auth.Sandbox, "output:\n  format: markdown\n  dir: reports\ndatabase:\n  mode: append\n")
	cmd := newRootCmd()

	s, err := resolveSettings(cmd, &cliOptions{configPath: configPath})
	require.NoError(t, err)
	assert.Equal(t, auth.Sandbox, s.env)
	assert.Equal(t, "markdown", s.format)
	assert.Equal(t, "reports", s.outDir)
	assert.Equal(t, store.ModeAppend, s.mode)

	s, err = resolveSettings(cmd, &cliOptions{configPath: configPath, env: "prod", format: "csv", outputFile: "out.csv", mode: "replace"})
	require.NoError(t, err)
	assert.Equal(t, auth.Prod, s.env)
	assert.Equal(t, "csv", s.format)
	assert.Empty(t, s.outDir)
	assert.Equal(t, store.ModeReplace, s.mode)

	_, err = resolveSettings(cmd, &cliOptions{configPath: configPath, outputFile: "a", outputDir: "b"})
	assert.ErrorContains(t, err, "cannot use both")

	_, err = resolveSettings(cmd, &cliOptions{configPath: configPath, env: "staging"})
	assert.ErrorContains(t, err, "unknown environment")

	_, err = resolveSettings(cmd, &cliOptions{configPath: configPath, mode: "merge"})
	assert.ErrorContains(t, err, "unknown mode")
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	return newFakeAPIWithBalance(t, balanceJSON)
}

func newFakeAPIWithBalance(t *testing.T, balance string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts/list.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(accountListJSON))
	})
	mux.HandleFunc("/v1/accounts/dBZOKt9xDrtRSAOl4MSiiA/balance.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("instType") != "BROKERAGE" {
			http.Error(w, "missing instType", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(balance))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBalanceCommand(t *testing.T) {
	srv := newFakeAPI(t)
	configPath := writeSetup(t, auth.Sandbox, "")

	out, err := execute(t, "balance", "--config", configPath, "--base-url", srv.URL, "-a", "840104290", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "accountId,accountType,moneyMktBalance\n840104290,PCASH,0\n", out)
}

func TestBalanceCommandKeepDuplicates(t *testing.T) {
	srv := newFakeAPIWithBalance(t, repeatedBalanceJSON)
	configPath := writeSetup(t, auth.Sandbox, "")
	args := []string{"balance", "--config", configPath, "--base-url", srv.URL, "-a", "840104290", "-f", "csv"}

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "accountId,cashBalance\n840104290,5\n", out)

	out, err = execute(t, append(args, "--keep-duplicates")...)
	require.NoError(t, err)
	assert.Equal(t, "accountId,cashBalance,cashBalance\n840104290,5,7\n", out)
}

func TestAccountsCommandToFiles(t *testing.T) {
	srv := newFakeAPI(t)
	configPath := writeSetup(t, auth.Sandbox, "")
	dir := filepath.Join(t.TempDir(), "reports")

	_, err := execute(t, "accounts", "--config", configPath, "--base-url", srv.URL, "-d", dir, "-f", "markdown")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "accounts.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 840104290 | dBZOKt9xDrtRSAOl4MSiiA | BROKERAGE |")

	_, err = os.Stat(filepath.Join(dir, "_overview.md"))
	assert.NoError(t, err)
}

func TestAccountsCommandToDatabase(t *testing.T) {
	srv := newFakeAPI(t)
	configPath := writeSetup(t, auth.Sandbox, "")
	dbPath := filepath.Join(t.TempDir(), "trades.db")

	out, err := execute(t, "accounts", "--config", configPath, "--base-url", srv.URL, "--db-url", "sqlite://"+dbPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestCommandErrors(t *testing.T) {
	srv := newFakeAPI(t)

	configPath := writeSetup(t, auth.Prod, "")
	_, err := execute(t, "accounts", "--config", configPath, "--base-url", srv.URL)
	assert.ErrorContains(t, err, "is for prod, not sandbox")

	configPath = writeSetup(t, auth.Sandbox, "")
	_, err = execute(t, "balance", "--config", configPath, "--base-url", srv.URL)
	assert.ErrorContains(t, err, "account id is required")

	_, err = execute(t, "details", "--config", configPath, "--base-url", srv.URL, "-a", "840104290")
	assert.Error(t, err)

	_, err = execute(t, "transactions", "--config", configPath, "--base-url", srv.URL, "-a", "840104290", "--start-date", "2024-03-01")
	assert.ErrorContains(t, err, "invalid start date")

	_, err = execute(t, "accounts", "--config", configPath, "--base-url", srv.URL, "-f", "html")
	assert.ErrorContains(t, err, "unsupported format")
}
