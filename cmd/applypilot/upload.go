package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/pipeline"
)

var uploadFile string

var uploadCmd = &cobra.Command{
	Use:   "upload-resume",
	Short: "Upload a resume PDF",
	Long:  "Validate and upload a resume PDF, insert it into the signed-in user's resume history, and make it the current resume.",
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "Path to the resume PDF (required)")
	uploadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(uploadFile)
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}

	resume, err := a.pipeline.UploadResume(ctx, pipeline.ResumeUpload{
		FileName:    filepath.Base(uploadFile),
		ContentType: "application/pdf",
		Data:        data,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Uploaded resume: %s\n", resume.FileURL)
	return nil
}
