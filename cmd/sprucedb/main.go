// Command sprucedb is a thin host program around the sprucedb engine:
// put/get/delete against a database directory, plus a demo walkthrough.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pragmatic-zac/sprucedb/internal/config"
	"github.com/pragmatic-zac/sprucedb/pkg/sprucedb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sprucedb",
		Short: "sprucedb is an embedded, single-writer LSM key-value store",
	}

	root.AddCommand(newPutCmd(), newGetCmd(), newDeleteCmd(), newDemoCmd())
	return root
}

func openDB() (*sprucedb.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return sprucedb.Open(sprucedb.Config{
		BasePath:               cfg.BasePath,
		MemtableFlushThreshold: cfg.MemtableFlushThreshold,
		SSTableIndexInterval:   cfg.SSTableIndexInterval,
		Logger:                 logger,
	})
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Write a key/value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Put(args[0], []byte(args[1]))
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Read a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			value, ok, err := db.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Println(string(value))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Delete(args[0])
		},
	}
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through put/get/delete/reopen against a scratch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}
