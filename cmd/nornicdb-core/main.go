// Package main provides the nornicdb-core CLI entry point: a thin
// demonstration harness over the embedded engine. Plans are authored as
// YAML files (see internal/planfile); the query language front end is a
// separate concern and not part of this binary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/nornicdb-core/internal/config"
	"github.com/orneryd/nornicdb-core/internal/exec"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
	"github.com/orneryd/nornicdb-core/internal/kv"
	"github.com/orneryd/nornicdb-core/internal/planfile"
	"github.com/orneryd/nornicdb-core/internal/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nornicdb-core",
		Short: "NornicDB Core - embedded property-graph storage and plan executor",
		Long: `NornicDB Core is the embedded storage engine and query-plan executor
underlying NornicDB: nodes, edges, and adjacency indices over an ordered
key-value store, with snapshot-isolated optimistic transactions and a
pull-based streaming operator engine.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nornicdb-core v%s (%s)\n", version, commit)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new data directory",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	initCmd.Flags().String("config", "", "YAML config file")
	rootCmd.AddCommand(initCmd)

	runPlanCmd := &cobra.Command{
		Use:   "run-plan <plan.yaml>",
		Short: "Execute a YAML-encoded query plan and print its rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	runPlanCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	runPlanCmd.Flags().String("config", "", "YAML config file")
	runPlanCmd.Flags().Bool("in-memory", false, "Run against an empty in-memory store")
	runPlanCmd.Flags().StringArray("param", nil, "Query parameter as name=value (string-typed)")
	runPlanCmd.Flags().Bool("rollback", false, "Discard the plan's writes instead of committing")
	rootCmd.AddCommand(runPlanCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, an optional config file, environment
// overrides, and command-line flags, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if cmd.Flags().Lookup("in-memory") != nil {
		if inMem, _ := cmd.Flags().GetBool("in-memory"); inMem {
			cfg.InMemory = true
		}
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (*storage.DB, error) {
	return storage.Open(kv.Options{
		DataDir:      cfg.DataDir,
		InMemory:     cfg.InMemory,
		SyncWrites:   cfg.SyncWrites,
		BlockCacheMB: cfg.BlockCacheMB,
	})
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.InMemory {
		return fmt.Errorf("init: nothing to initialize for an in-memory store")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("init: creating %s: %w", cfg.DataDir, err)
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	log.Printf("[init] database initialized at %s", cfg.DataDir)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := planfile.Load(args[0])
	if err != nil {
		return err
	}
	params, err := parseParams(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	txn, err := db.Begin()
	if err != nil {
		return err
	}
	e, err := exec.New(p, txn, exec.Options{Params: params, PullBudget: cfg.PullBudget})
	if err != nil {
		txn.Rollback()
		return err
	}

	ctx := context.Background()
	count := 0
	for {
		row, ok, nerr := e.Next(ctx)
		if nerr != nil {
			txn.Rollback()
			return nerr
		}
		if !ok {
			break
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "\t"))
		count++
	}

	if rollback, _ := cmd.Flags().GetBool("rollback"); rollback {
		if err := txn.Rollback(); err != nil {
			return err
		}
		log.Printf("[run-plan] %d row(s), writes discarded", count)
		return nil
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	log.Printf("[run-plan] %d row(s), committed", count)
	return nil
}

func parseParams(cmd *cobra.Command) (map[string]gvalue.Value, error) {
	raw, _ := cmd.Flags().GetStringArray("param")
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]gvalue.Value, len(raw))
	for _, kvp := range raw {
		name, value, found := strings.Cut(kvp, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("run-plan: malformed --param %q, want name=value", kvp)
		}
		params[name] = gvalue.StringOf(value)
	}
	return params, nil
}
