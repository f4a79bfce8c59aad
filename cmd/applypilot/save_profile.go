package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/pipeline"
	"github.com/jonathan/applypilot/internal/types"
)

var (
	profileName      string
	profileTitle     string
	profileLocation  string
	profileSalaryMin int64
	profileSalaryMax int64
	profileSkills    string
	profileResume    string
)

var saveProfileCmd = &cobra.Command{
	Use:   "save-profile",
	Short: "Save the signed-in user's profile",
	Long:  "Validate and save the profile, optionally uploading a resume PDF in the same operation.",
	RunE:  runSaveProfile,
}

func init() {
	saveProfileCmd.Flags().StringVar(&profileName, "name", "", "Full name (required)")
	saveProfileCmd.Flags().StringVar(&profileTitle, "title", "", "Desired job title (required)")
	saveProfileCmd.Flags().StringVar(&profileLocation, "location", "Remote", "Work location: Remote, Hybrid, On-site or Flexible")
	saveProfileCmd.Flags().Int64Var(&profileSalaryMin, "salary-min", 0, "Minimum desired salary")
	saveProfileCmd.Flags().Int64Var(&profileSalaryMax, "salary-max", 0, "Maximum desired salary")
	saveProfileCmd.Flags().StringVar(&profileSkills, "skills", "", "Comma-separated skills")
	saveProfileCmd.Flags().StringVar(&profileResume, "resume", "", "Optional path to a resume PDF to upload with the profile")

	saveProfileCmd.MarkFlagRequired("name")
	saveProfileCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(saveProfileCmd)
}

func runSaveProfile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	draft := pipeline.ProfileDraft{
		FullName:     profileName,
		DesiredTitle: profileTitle,
		Location:     types.WorkLocation(profileLocation),
		SalaryMin:    profileSalaryMin,
		SalaryMax:    profileSalaryMax,
		Skills:       profileSkills,
	}

	if profileResume != "" {
		data, err := os.ReadFile(profileResume)
		if err != nil {
			return fmt.Errorf("failed to read resume file: %w", err)
		}
		draft.ResumeFile = &pipeline.ResumeUpload{
			FileName:    filepath.Base(profileResume),
			ContentType: "application/pdf",
			Data:        data,
		}
	}

	saved, err := a.pipeline.SaveProfile(ctx, draft)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Saved profile for %s\n", saved.FullName)
	return nil
}
