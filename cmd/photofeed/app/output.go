package app

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/status"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	maxCaptionWidth = 40
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want %s or %s)", format, outputTable, outputJSON)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderFeed prints a synced feed, newest post first, followed by any image failures
func renderFeed(w io.Writer, result *feed.Result, format string) error {
	if format == outputJSON {
		return writeJSON(w, result)
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Author", "Caption", "Image", "Posted")
	for _, post := range result.Posts {
		image := fmt.Sprintf("%s %s", humanize.Bytes(uint64(post.Asset.Size())), post.Asset.Format)
		if err := table.Append([]string{
			post.ID,
			post.Author,
			truncate(post.Caption, maxCaptionWidth),
			image,
			relativeTime(post.CreatedAt),
		}); err != nil {
			return fmt.Errorf("failed to render post %s: %w", post.ID, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render feed: %w", err)
	}

	if len(result.Failures) > 0 {
		if _, err := fmt.Fprintf(w, "\n%d image(s) could not be loaded:\n", len(result.Failures)); err != nil {
			return err
		}
		failures := tablewriter.NewWriter(w)
		failures.Header("Post", "Reason")
		for _, f := range result.Failures {
			if err := failures.Append([]string{f.PostID, f.Reason}); err != nil {
				return fmt.Errorf("failed to render failure for %s: %w", f.PostID, err)
			}
		}
		if err := failures.Render(); err != nil {
			return fmt.Errorf("failed to render failures: %w", err)
		}
	}

	_, err := fmt.Fprintf(w, "%d post(s) synced %s\n", len(result.Posts), relativeTime(result.SyncedAt))
	return err
}

// renderStatuses prints the persisted refresh status of every collection
func renderStatuses(w io.Writer, statuses map[string]*status.SyncStatus, format string) error {
	if format == outputJSON {
		return writeJSON(w, statuses)
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	slices.Sort(names)

	table := tablewriter.NewWriter(w)
	table.Header("Collection", "Phase", "Posts", "Failed", "Last Sync", "Attempts", "Message")
	for _, name := range names {
		s := statuses[name]
		lastSync := "never"
		if s.LastSyncTime != nil {
			lastSync = relativeTime(*s.LastSyncTime)
		}
		if err := table.Append([]string{
			name,
			string(s.Phase),
			strconv.Itoa(s.PostCount),
			strconv.Itoa(s.FailedAssetCount),
			lastSync,
			strconv.Itoa(s.AttemptCount),
			s.Message,
		}); err != nil {
			return fmt.Errorf("failed to render status of %s: %w", name, err)
		}
	}
	return table.Render()
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
