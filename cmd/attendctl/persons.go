package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
)

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "List enrolled people",
	Args:  cobra.NoArgs,
	RunE:  runPersons,
}

func init() {
	rootCmd.AddCommand(personsCmd)
}

func runPersons(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{SkipVision: true})
	if err != nil {
		return err
	}
	defer a.Close()

	persons, err := a.Store.ListPersons(ctx)
	if err != nil {
		return fmt.Errorf("list persons: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMBEDDINGS\tENROLLED")
	for _, p := range persons {
		n, err := a.Store.CountFaces(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("count faces: %w", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.FullName(), n, p.CreatedAt.Local().Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d people\n", len(persons))
	return nil
}
