// cmd/ledgerctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/app"
	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/utils"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the paper ledger",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	tokenCmd.Flags().Int("ttl", 0, "token lifetime in hours (defaults to JWT_ACCESS_TTL)")
	rootCmd.AddCommand(migrateCmd, seedCmd, reconcileCmd, exportCmd, tokenCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app.ConfigureLogging(cfg.Log)
	return cfg, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func withDatabase(fn func(cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return fn(cfg, db)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(cfg *config.Config, db *gorm.DB) error {
			return database.RunMigrations(db)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write default settings and grant the registry principal its recorder role",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(cfg *config.Config, db *gorm.DB) error {
			return database.SeedInitialData(db, cfg.Ledger)
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare cached counts and balances with their sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ledger, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		report, err := ledger.Services.Reconciliation.Reconcile()
		if err != nil {
			return err
		}
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.Clean() {
			return fmt.Errorf("drift found: %d citation counts, %d balances",
				len(report.CitationDrift), len(report.BalanceDrift))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON snapshot of the ledger to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ledger, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		result, err := ledger.Services.Export.ExportSnapshot(context.Background())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <principal>",
	Short: "Issue an access token for a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		principal, err := utils.NormalizeAddress(args[0])
		if err != nil {
			return err
		}

		ttl, _ := cmd.Flags().GetInt("ttl")
		if ttl <= 0 {
			ttl = cfg.JWT.AccessTokenTTL
		}

		utils.SetJWTSecret(cfg.JWT.SecretKey)
		token, err := utils.GenerateJWT(principal, ttl)
		if err != nil {
			return err
		}

		logrus.WithField("principal", principal).Debug("Token issued")
		fmt.Println(token)
		return nil
	},
}
