package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func (a *App) uploadCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a file and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}
			atts, err := openAttachments(args)
			if err != nil {
				return err
			}
			defer closeAttachments(atts)

			fileURL, err := a.client.Files.Upload(cmd.Context(), atts[0], category)
			if err != nil {
				return err
			}
			return a.emit(map[string]string{"fileUrl": fileURL}, func() error {
				a.printf("%s\n", fileURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "optional file category")
	return cmd
}

func (a *App) downloadCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download a media file (backend files or public URLs)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = a.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			n, err := a.client.Files.Download(cmd.Context(), args[0], w)
			if err != nil {
				if output != "" && output != "-" {
					os.Remove(output)
				}
				return err
			}
			if w != a.out {
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %d bytes to %s\n", n, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when omitted)")
	return cmd
}
