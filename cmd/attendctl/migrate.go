package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Creates the pgvector extension and the persons, face_embeddings and attendance tables if they do not exist.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the store applies the schema.
		a, err := openApp(cmd.Context(), app.Options{SkipVision: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		fmt.Printf("Schema up to date (%s)\n", a.Config.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
