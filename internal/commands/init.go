package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/config"
	"github.com/propledger/propledger/internal/logger"
	"github.com/propledger/propledger/internal/store"
)

type initOptions struct {
	name     string
	currency string
	driver   string
	dsn      string
	chart    string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new propledger project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			n, err := runInit(cmd.Context(), absDir, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized propledger project at %s (%d accounts)\n", absDir, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "portfolio owner name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.currency, "currency", "EGP", "reporting currency")
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "database driver (sqlite or postgres)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database DSN (default propledger.db for sqlite)")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "chart-of-accounts CSV to load instead of the default chart")

	return cmd
}

func runInit(ctx context.Context, dir string, opts initOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return 0, fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	for _, d := range []string{"import", filepath.Join("import", "processed"), "exports"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return 0, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(opts.name)
	cfg.Business.Currency = opts.currency
	cfg.Database.Driver = opts.driver
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return 0, fmt.Errorf("writing config: %w", err)
	}

	gitignore := "propledger.db\n.env\nexports/\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return 0, fmt.Errorf("writing .gitignore: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return 0, fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := store.Open(cfg.Database, cfg.ResolveDSN(dir), log)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close(db) }()

	if err := store.Migrate(ctx, db); err != nil {
		return 0, err
	}

	svc := accounts.NewService(db, log)
	if opts.chart == "" {
		n, err := svc.Seed(ctx, accounts.DefaultChart())
		if err != nil {
			return 0, fmt.Errorf("seeding chart of accounts: %w", err)
		}
		return n, nil
	}

	f, err := os.Open(opts.chart)
	if err != nil {
		return 0, fmt.Errorf("opening chart: %w", err)
	}
	defer f.Close()
	chart, parents, err := accounts.ReadAccounts(f)
	if err != nil {
		return 0, err
	}
	n, err := svc.Import(ctx, chart, parents)
	if err != nil {
		return 0, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return n, nil
}
