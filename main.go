package main

import (
	"fmt"
	"log"
	"os"

	"eventflow/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	DSN string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "eventflow",
		Short: "Tournament progression engine for live events",
		Long: `eventflow runs the brackets and performance rosters shown on an event's
guest screens, together with attendance, media and page settings.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "postgres DSN (defaults to DATABASE_URL)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newImportCommand(opts))

	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			log.Println("✅ Database migrated")
			return nil
		},
	}
}

// openDB connects to postgres using --dsn or DATABASE_URL.
func openDB(opts *rootOptions) (*gorm.DB, error) {
	dsn := opts.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
