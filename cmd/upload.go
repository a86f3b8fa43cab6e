package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	apphosting "time-for/application/hosting"
	"time-for/domain/hosting"
	"time-for/infrastructure/config"
	"time-for/infrastructure/desktop"
	"time-for/infrastructure/drive"
	"time-for/infrastructure/imgur"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var uploadCopy bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an existing clip and print its link",
	Long: `Upload a local clip through the configured hosting provider (Imgur by
default, Google Drive with hosting.provider: drive) and print the link.

Files ending in .gif, .png or .jpg are uploaded as still images, everything
else as video.

Example:
  time-for upload /tmp/time-for/full.webm
  time-for upload --copy ./time-for/full.gif`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadCopy, "copy", false, "Copy the link to the clipboard")
}

func runUpload(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	uploader, provider, err := newUploader(ctx, c, log, os.Stdout)
	if err != nil {
		return err
	}

	var clip desktop.Clipboard
	if uploadCopy {
		clip = desktop.SystemClipboard{}
	}

	return RunUploadWithDependencies(ctx, uploader, provider, args[0], clip, os.Stdout)
}

// newUploader builds the client for the configured provider and returns it with the provider name
func newUploader(ctx context.Context, c *config.Config, log *logrus.Logger, out io.Writer) (hosting.Uploader, string, error) {
	entry := logrus.NewEntry(log)

	switch c.Hosting.Provider {
	case config.ProviderDrive:
		opts := []drive.ClientOption{
			drive.WithFolderID(c.Drive.FolderID),
			drive.WithLogger(entry),
		}

		var (
			client *drive.Client
			err    error
		)
		if c.Drive.Auth == config.DriveAuthServiceAccount {
			client, err = drive.NewClient(ctx, c.Drive.CredentialsFile, opts...)
		} else {
			client, err = drive.NewClientWithOAuth(ctx, drive.OAuthConfig{
				CredentialsFile: c.Drive.CredentialsFile,
				TokenFile:       c.Drive.TokenFile,
				Out:             out,
			}, opts...)
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Google Drive client: %w", err)
		}
		return client, config.ProviderDrive, nil

	default:
		client := imgur.NewClient(c.Imgur.ClientID,
			imgur.WithBaseURL(c.Imgur.BaseURL),
			imgur.WithLogger(entry),
		)
		return client, config.ProviderImgur, nil
	}
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	uploader hosting.Uploader,
	provider string,
	path string,
	clip desktop.Clipboard,
	output io.Writer,
) error {
	service := apphosting.NewService(uploader, provider, output)

	link, err := service.UploadFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Upload complete!\n")
	fmt.Fprintf(output, "  Link: %s\n", link.URL)

	if clip != nil {
		if err := clip.WriteAll(link.URL); err != nil {
			fmt.Fprintf(output, "  Could not copy the link: %v\n", err)
		} else {
			fmt.Fprintf(output, "  Copied to clipboard\n")
		}
	}
	return nil
}
