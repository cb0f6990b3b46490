package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mirrorsync/internal/config"
	"mirrorsync/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var challengeID int64
	var title string
	var note string
	var lat float64
	var lng float64

	cmd := &cobra.Command{
		Use:   "submit <photo>",
		Short: "Submit a photo, queueing it when offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user is required")
			}
			if challengeID <= 0 {
				return errors.New("--challenge is required")
			}

			photoPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve photo path: %w", err)
			}
			content, err := os.ReadFile(photoPath)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}
			if len(content) == 0 {
				return fmt.Errorf("photo %s is empty", photoPath)
			}

			req := ipc.SubmitRequest{
				UserID:      userID,
				ChallengeID: challengeID,
				FileName:    filepath.Base(photoPath),
				Title:       title,
				Note:        note,
				Content:     content,
			}
			if cmd.Flags().Changed("lat") {
				req.Latitude = &lat
			}
			if cmd.Flags().Changed("lng") {
				req.Longitude = &lng
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(req)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Delivered {
					fmt.Fprintln(stdout, "Submission delivered")
					if resp.SubmissionID != "" {
						fmt.Fprintf(stdout, "Submission ID: %s\n", resp.SubmissionID)
					}
					if resp.PhotoURL != "" {
						fmt.Fprintf(stdout, "Photo URL: %s\n", resp.PhotoURL)
					}
					return nil
				}
				fmt.Fprintln(stdout, "Offline or delivery failed; photo queued for sync")
				fmt.Fprintf(stdout, "Upload ID: %s\n", resp.UploadID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Submitting user id")
	cmd.Flags().Int64Var(&challengeID, "challenge", 0, "Challenge id the photo answers")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Submission title")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Optional submission note")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Capture latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Capture longitude")

	return cmd
}
