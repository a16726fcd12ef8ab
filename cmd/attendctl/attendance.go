package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/models"
)

var (
	attendancePerson string
	attendanceSince  time.Duration
	attendanceLimit  int
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show the attendance log, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAttendance,
}

func init() {
	attendanceCmd.Flags().StringVar(&attendancePerson, "person", "", "only entries for this person id")
	attendanceCmd.Flags().DurationVar(&attendanceSince, "since", 0, "only entries newer than this (e.g. 24h)")
	attendanceCmd.Flags().IntVar(&attendanceLimit, "limit", 50, "maximum entries to show")
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q := models.AttendanceQuery{Limit: attendanceLimit}
	if attendancePerson != "" {
		id, err := uuid.Parse(attendancePerson)
		if err != nil {
			return fmt.Errorf("invalid --person: %w", err)
		}
		q.PersonID = &id
	}
	if attendanceSince > 0 {
		from := time.Now().Add(-attendanceSince)
		q.From = &from
	}

	a, err := openApp(ctx, app.Options{SkipVision: true})
	if err != nil {
		return err
	}
	defer a.Close()

	records, total, err := a.Store.QueryAttendance(ctx, q)
	if err != nil {
		return fmt.Errorf("query attendance: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tCONFIDENCE\tID")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\n", r.Timestamp.Local().Format(time.DateTime), r.Name(), r.Confidence, r.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nshowing %d of %d entries\n", len(records), total)
	return nil
}
