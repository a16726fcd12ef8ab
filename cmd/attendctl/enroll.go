package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/identity"
)

var (
	enrollFirst string
	enrollLast  string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll IMAGE",
	Short: "Enroll one person from a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnroll,
}

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir DIR",
	Short: "Enroll every photo in a directory",
	Long: `Enrolls one person per image file in DIR. The file name gives the name:
"Ana_Lopez.jpg" enrolls first name "Ana", last name "Lopez"; "Ana.jpg"
enrolls "Ana" with an empty last name. People that already exist are
skipped and reported at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	enrollCmd.Flags().StringVar(&enrollFirst, "first", "", "first name (required)")
	enrollCmd.Flags().StringVar(&enrollLast, "last", "", "last name")
	_ = enrollCmd.MarkFlagRequired("first")

	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(enrollDirCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
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

	res, err := a.Enroller.Enroll(ctx, identity.EnrollRequest{
		FirstName: enrollFirst,
		LastName:  enrollLast,
		Image:     data,
	})
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.Person == nil {
		fmt.Println("No face found, nothing enrolled.")
		return nil
	}
	fmt.Printf("Enrolled %s (%s) with %d embeddings from %d images\n",
		res.Person.FullName(), res.Person.ID, res.EmbeddingCount, res.ImagesTried)
	return nil
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// nameFromFile splits "First_Last.ext" into its name parts. Everything after
// the first underscore is the last name, with further underscores as spaces.
func nameFromFile(path string) (first, last string, ok bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if !imageExts[ext] {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	first, last, _ = strings.Cut(stem, "_")
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(strings.ReplaceAll(last, "_", " "))
	if first == "" {
		return "", "", false
	}
	return first, last, true
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := nameFromFile(e.Name()); ok {
			files = append(files, filepath.Join(args[0], e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Println("No image files found.")
		return nil
	}

	a, err := openApp(ctx, app.Options{RequireVision: true})
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("people"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var enrolled, embeddings int
	var skipped, noFace, failed []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		first, last, _ := nameFromFile(path)
		name := strings.TrimSpace(first + " " + last)

		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			_ = bar.Add(1)
			continue
		}

		res, err := a.Enroller.Enroll(ctx, identity.EnrollRequest{FirstName: first, LastName: last, Image: data})
		switch {
		case errors.Is(err, identity.ErrDuplicatePerson):
			skipped = append(skipped, name)
		case err != nil:
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		case res.Person == nil:
			noFace = append(noFace, filepath.Base(path))
		default:
			enrolled++
			embeddings += res.EmbeddingCount
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()

	fmt.Printf("Enrolled %d people (%d embeddings)\n", enrolled, embeddings)
	printList("Already enrolled", skipped)
	printList("No face found", noFace)
	printList("Failed", failed)
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failed), len(files))
	}
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", title, len(items))
	for _, s := range items {
		fmt.Printf("  - %s\n", s)
	}
}
