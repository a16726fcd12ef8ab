package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/imaging"
)

var recognizeOut string

var recognizeCmd = &cobra.Command{
	Use:   "recognize IMAGE",
	Short: "Recognize faces in a photo and record attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

func init() {
	recognizeCmd.Flags().StringVarP(&recognizeOut, "out", "o", "", "write the annotated image to this JPEG file")
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	a, err := openApp(ctx, app.Options{RequireVision: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Matcher.Recognize(ctx, data)
	if err != nil {
		return err
	}

	fmt.Printf("Faces detected: %d, recognized: %d\n", report.FacesDetected, len(report.Faces))
	for _, f := range report.Faces {
		status := "recorded"
		if !f.AttendanceRecorded {
			status = "already present"
		}
		fmt.Printf("  %-24s distance %.3f  confidence %.3f  box %v  %s\n",
			f.Label, f.Distance, f.Confidence, f.Box.Array(), status)
	}

	if recognizeOut != "" && report.Annotated != nil {
		jpg, err := imaging.EncodeJPEG(report.Annotated, 90)
		if err != nil {
			return fmt.Errorf("encode annotated image: %w", err)
		}
		if err := os.WriteFile(recognizeOut, jpg, 0o644); err != nil {
			return fmt.Errorf("write annotated image: %w", err)
		}
		fmt.Printf("Annotated image written to %s\n", recognizeOut)
	}
	return nil
}
