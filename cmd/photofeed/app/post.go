package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stacklok/photofeed/internal/feed"
)

func newPostCmd() *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post <image-file>",
		Short: "Submit a photo with a caption as the logged-in user",
		Long: `Submit a photo with a caption as the logged-in user.

The image is re-encoded as JPEG before upload. Every submission carries an
idempotency key; when a submission fails after reaching the server, rerun it
with the printed --idempotency-key so the post is not stored twice.`,
		Args: cobra.ExactArgs(1),
		RunE: runPost,
	}
	postCmd.Flags().StringP("caption", "c", "", "Caption text")
	postCmd.Flags().String("idempotency-key", "", "Key of an earlier attempt to retry")
	return postCmd
}

func runPost(cmd *cobra.Command, args []string) error {
	caption, err := cmd.Flags().GetString("caption")
	if err != nil {
		return fmt.Errorf("failed to get caption flag: %w", err)
	}
	key, err := cmd.Flags().GetString("idempotency-key")
	if err != nil {
		return fmt.Errorf("failed to get idempotency-key flag: %w", err)
	}
	if key == "" {
		key = uuid.NewString()
	}

	img, err := os.ReadFile(filepath.Clean(args[0]))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	_, components, err := loadComponents()
	if err != nil {
		return err
	}
	defer components.Close()

	ctx := cmd.Context()
	author, err := components.Client.CurrentIdentity(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}

	receipt, err := components.Submitter.Submit(ctx, img, caption, author, feed.WithIdempotencyKey(key))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), feed.UserMessage(err))
		if retryable(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "To retry without posting twice, rerun with --idempotency-key %s\n", key)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, feed.MessagePostSucceeded)
	fmt.Fprintf(out, "Post %s, image %s\n", receipt.PostID, receipt.Asset.URL)
	return nil
}

// retryable reports whether the server may have stored part of the submission
func retryable(err error) bool {
	switch feed.KindOf(err) {
	case feed.ErrorKindRemoteTimeout, feed.ErrorKindRemoteWriteFailure, feed.ErrorKindCanceled:
		return true
	default:
		return false
	}
}
