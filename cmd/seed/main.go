package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cuestionarios/internal/app"
	"cuestionarios/internal/config"
	"cuestionarios/internal/logging"
	"cuestionarios/internal/model"
	"cuestionarios/internal/service"
)

var (
	// Global flags
	verbose bool
	envFile string
	timeout time.Duration

	// Profile flags
	profileUsuario int
	profilePath    string
	profileValor   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Load questionnaire catalogs and profile values into MongoDB",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, true)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// validateCmd checks catalog files without touching the database
var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate YAML catalogs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			catalogs, err := loadCatalogFile(path)
			if err != nil {
				return err
			}
			for _, q := range catalogs {
				logger.Info("catalog ok", zap.String("file", path), zap.Int("cuestionario", q.ID), zap.Int("preguntas", len(q.Preguntas)))
			}
		}
		return nil
	},
}

// catalogCmd upserts catalogs and drops their cached copies
var catalogCmd = &cobra.Command{
	Use:   "catalog FILE...",
	Short: "Store YAML catalogs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var all []*model.Questionnaire
		for _, path := range args {
			catalogs, err := loadCatalogFile(path)
			if err != nil {
				return err
			}
			all = append(all, catalogs...)
		}

		return withRecords(cmd.Context(), func(ctx context.Context, records *service.RecordsService) error {
			for _, q := range all {
				if err := records.PutQuestionnaire(ctx, q); err != nil {
					return fmt.Errorf("cuestionario %d: %w", q.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d catalogs\n", len(all))
			return nil
		})
	},
}

// profileCmd sets one denormalized profile field value
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Store a profile field value",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(profileValor)) {
			return fmt.Errorf("--valor must be JSON, got %q", profileValor)
		}
		v := &model.ProfileFieldValue{Usuario: profileUsuario, Path: profilePath, Valor: json.RawMessage(profileValor)}

		return withRecords(cmd.Context(), func(ctx context.Context, records *service.RecordsService) error {
			return records.SetProfileFieldValue(ctx, v)
		})
	},
}

func withRecords(parent context.Context, fn func(context.Context, *service.RecordsService) error) error {
	cfg, err := config.Load(envFiles()...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	store, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	records := service.NewRecordsService(store.QuestionnaireRepo, store.AnswerRepo, store.FinalizationRepo, store.ProfileRepo, store.CatalogCache, cfg.UnlockMode, logger)
	return fn(ctx, records)
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Env file to load (default: .env when present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	profileCmd.Flags().IntVar(&profileUsuario, "usuario", 0, "User id (required)")
	profileCmd.Flags().StringVar(&profilePath, "path", "", "Profile field path (required)")
	profileCmd.Flags().StringVar(&profileValor, "valor", "", "JSON value (required)")
	profileCmd.MarkFlagRequired("usuario")
	profileCmd.MarkFlagRequired("path")
	profileCmd.MarkFlagRequired("valor")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
