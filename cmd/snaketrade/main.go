package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/snaketrade"
	"github.com/tordrt/snaketrade/internal/auth"
	"github.com/tordrt/snaketrade/internal/config"
	"github.com/tordrt/snaketrade/internal/etrade"
	"github.com/tordrt/snaketrade/internal/store"
	"github.com/tordrt/snaketrade/internal/tabular"
)

// cliOptions holds the flag values shared by every command
type cliOptions struct {
	configPath string
	env        string
	format     string
	outputFile string
	outputDir  string
	dbURL      string
	mode       string
	account    string
	exclude    string
	keepAll    bool
	verbose    bool
	baseURL    string

	// authorize
	verifier string

	// balance
	accountType string

	// transactions
	startDate string
	endDate   string
	sortOrder string
	marker    string
	count     int
	allPages  bool

	// portfolio
	sortBy     string
	pageNumber int
	view       string
	totals     bool
	lots       bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "snaketrade",
		Short:         "Fetch E*Trade account data as flat tables",
		Long:          `snaketrade fetches accounts, balances, transactions and portfolios from the E*Trade API and writes them as text, markdown or CSV tables, or into PostgreSQL, MySQL or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: $SNAKETRADE_CONFIG)")
	pf.StringVar(&opts.env, "env", "", "API environment: sandbox or prod (default: from config, else sandbox)")
	pf.StringVarP(&opts.format, "format", "f", "", "Output format: text, markdown or csv (default: text)")
	pf.StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	pf.StringVarP(&opts.outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	pf.StringVar(&opts.dbURL, "db-url", "", "Store tables in a database (postgres://, mysql:// or sqlite://)")
	pf.StringVar(&opts.mode, "mode", "", "Database write mode: replace or append (default: replace)")
	pf.StringVarP(&opts.account, "account", "a", "", "Account id or account id key")
	pf.StringVar(&opts.exclude, "exclude", "", "Tables to leave out (comma-separated, optional)")
	pf.BoolVar(&opts.keepAll, "keep-duplicates", false, "Keep every column when nested records repeat a field name")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log API requests to stderr")
	pf.StringVar(&opts.baseURL, "base-url", "", "Override the API base URL")
	_ = pf.MarkHidden("base-url")

	authorizeCmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize access to an E*Trade account and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(cmd, opts)
		},
	}
	authorizeCmd.Flags().StringVar(&opts.verifier, "verifier", "", "Verification code (prompted for when omitted)")

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, snaketrade.ReportAccounts, &snaketrade.Options{})
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, snaketrade.ReportBalance, &snaketrade.Options{
				AccountType: opts.accountType,
			})
		},
	}
	balanceCmd.Flags().StringVar(&opts.accountType, "account-type", "", "Account type filter (optional)")

	transactionsCmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, snaketrade.ReportTransactions, &snaketrade.Options{
				Transactions: etrade.TransactionQuery{
					StartDate: opts.startDate,
					EndDate:   opts.endDate,
					SortOrder: strings.ToUpper(opts.sortOrder),
					Marker:    opts.marker,
					Count:     opts.count,
				},
				AllPages: opts.allPages,
			})
		},
	}
	tf := transactionsCmd.Flags()
	tf.StringVar(&opts.startDate, "start-date", "", "First day, MMDDYYYY")
	tf.StringVar(&opts.endDate, "end-date", "", "Last day, MMDDYYYY")
	tf.StringVar(&opts.sortOrder, "sort-order", "", "ASC or DESC")
	tf.StringVar(&opts.marker, "marker", "", "Continue from a previous page")
	tf.IntVar(&opts.count, "count", 0, "Page size, 1 to 50")
	tf.BoolVar(&opts.allPages, "all", false, "Fetch every page")

	detailsCmd := &cobra.Command{
		Use:   "details <transaction-id>",
		Short: "Show a single transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, snaketrade.ReportDetails, &snaketrade.Options{
				TransactionID: args[0],
			})
		},
	}

	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "List the positions of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, snaketrade.ReportPortfolio, &snaketrade.Options{
				Portfolio: etrade.PortfolioQuery{
					Count:          opts.count,
					SortBy:         opts.sortBy,
					SortOrder:      strings.ToUpper(opts.sortOrder),
					PageNumber:     opts.pageNumber,
					View:           opts.view,
					TotalsRequired: opts.totals,
					LotsRequired:   opts.lots,
				},
			})
		},
	}
	pff := portfolioCmd.Flags()
	pff.IntVar(&opts.count, "count", 0, "Positions per page")
	pff.StringVar(&opts.sortBy, "sort-by", "", "Sort field, e.g. SYMBOL")
	pff.StringVar(&opts.sortOrder, "sort-order", "", "ASC or DESC")
	pff.IntVar(&opts.pageNumber, "page", 0, "Page number")
	pff.StringVar(&opts.view, "view", "", "View, e.g. QUICK or COMPLETE")
	pff.BoolVar(&opts.totals, "totals", false, "Include portfolio totals")
	pff.BoolVar(&opts.lots, "lots", false, "Include lot details")

	rootCmd.AddCommand(authorizeCmd, accountsCmd, balanceCmd, transactionsCmd, detailsCmd, portfolioCmd)
	return rootCmd
}

// settings is the effective configuration: flags override the config file
type settings struct {
	cfg    *config.Config
	env    auth.Env
	format string
	mode   store.Mode
	dbURL  string
	outDir string
	logger *slog.Logger
}

func resolveSettings(cmd *cobra.Command, opts *cliOptions) (*settings, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	envName := cfg.Env
	if opts.env != "" {
		envName = opts.env
	}
	env, err := auth.ParseEnv(envName)
	if err != nil {
		return nil, err
	}

	s := &settings{
		cfg:    cfg,
		env:    env,
		format: firstNonEmpty(opts.format, cfg.Output.Format, "text"),
		dbURL:  firstNonEmpty(opts.dbURL, cfg.Database.URL),
		outDir: firstNonEmpty(opts.outputDir, cfg.Output.Dir),
	}

	s.mode, err = store.ParseMode(firstNonEmpty(opts.mode, cfg.Database.Mode))
	if err != nil {
		return nil, err
	}

	if opts.outputDir != "" && opts.outputFile != "" {
		return nil, fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if opts.outputFile != "" {
		s.outDir = ""
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	s.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return s, nil
}

func runAuthorize(cmd *cobra.Command, opts *cliOptions) error {
	ctx := cmdContext(cmd)
	s, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}

	key, secret, err := s.cfg.Credentials(s.env, nil)
	if err != nil {
		return err
	}
	flow, err := auth.NewFlow(s.env, key, secret)
	if err != nil {
		return err
	}

	link, err := flow.Begin(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize access:\n\n  %s\n\n", link)

	verifier := opts.verifier
	if verifier == "" {
		verifier, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Verification code: ")
		if err != nil {
			return err
		}
	}

	session, err := flow.Complete(ctx, verifier)
	if err != nil {
		return err
	}

	path, err := s.cfg.SessionPath(s.env)
	if err != nil {
		return err
	}
	if err := auth.SaveSession(path, session); err != nil {
		return err
	}
	s.logger.Info("session saved", "env", s.env, "path", path)
	return nil
}

func runReport(cmd *cobra.Command, opts *cliOptions, report snaketrade.Report, fetchOpts *snaketrade.Options) error {
	ctx := cmdContext(cmd)
	s, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}

	path, err := s.cfg.SessionPath(s.env)
	if err != nil {
		return err
	}
	session, err := auth.LoadSession(path)
	if err != nil {
		return err
	}
	if session.Env != s.env {
		return fmt.Errorf("session %s is for %s, not %s", path, session.Env, s.env)
	}

	clientOpts := []etrade.Option{etrade.WithLogger(s.logger)}
	if opts.keepAll {
		clientOpts = append(clientOpts, etrade.WithFlattenOptions(tabular.Options{Collisions: tabular.KeepAll}))
	}

	var client *snaketrade.Client
	if opts.baseURL != "" {
		client = etrade.NewClient(opts.baseURL, session.Client(ctx), clientOpts...)
	} else {
		client, err = snaketrade.NewClient(ctx, session, clientOpts...)
		if err != nil {
			return err
		}
	}

	fetchOpts.AccountID = opts.account
	fetchOpts.ExcludeTables = parseList(opts.exclude)

	tables, err := snaketrade.Fetch(ctx, client, report, fetchOpts)
	if err != nil {
		return err
	}

	// Database output
	if s.dbURL != "" {
		n, err := snaketrade.StoreTables(ctx, s.dbURL, tables, s.mode)
		if err != nil {
			return err
		}
		s.logger.Info("tables stored", "tables", len(tables), "rows", n, "mode", s.mode)
		return nil
	}

	// Multi-file output
	if s.outDir != "" {
		return snaketrade.FormatTables(tables, &snaketrade.OutputOptions{OutputDir: s.outDir, Format: s.format})
	}

	// Single-file output
	writer := cmd.OutOrStdout()
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				s.logger.Warn("failed to close output file", "error", err)
			}
		}()
		writer = f
	}

	if err := snaketrade.FormatTables(tables, &snaketrade.OutputOptions{Writer: writer, Format: s.format}); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(out, label)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("no verification code entered")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// parseList splits a comma-separated flag value
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
