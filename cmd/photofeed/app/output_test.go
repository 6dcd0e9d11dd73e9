package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/status"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   slog.Level
		wantOK bool
	}{
		{name: "", want: slog.LevelInfo, wantOK: true},
		{name: "debug", want: slog.LevelDebug, wantOK: true},
		{name: "INFO", want: slog.LevelInfo, wantOK: true},
		{name: "warning", want: slog.LevelWarn, wantOK: true},
		{name: "error", want: slog.LevelError, wantOK: true},
		{name: "verbose", want: slog.LevelInfo, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseLogLevel(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestValidateOutput(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateOutput(outputTable))
	assert.NoError(t, validateOutput(outputJSON))
	assert.ErrorContains(t, validateOutput("yaml"), "unsupported output format")
}

func testResult() *feed.Result {
	return &feed.Result{
		Posts: []feed.PostRecord{
			{
				ID:        "post-2",
				Caption:   "sunset over the bay",
				Author:    "alice",
				CreatedAt: time.Now().Add(-2 * time.Hour),
				Asset: feed.Asset{
					Ref:    backend.AssetRef{Name: "a.jpg", URL: "https://files.example.com/a.jpg"},
					Data:   make([]byte, 2048),
					Format: "jpeg",
				},
			},
		},
		Failures: []feed.AssetFailure{{PostID: "post-1", Reason: "failed to fetch image"}},
		SyncedAt: time.Now(),
	}
}

func TestRenderFeed_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderFeed(&buf, testResult(), outputTable))

	out := buf.String()
	assert.Contains(t, out, "post-2")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "sunset over the bay")
	assert.Contains(t, out, "2.0 kB jpeg")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "1 image(s) could not be loaded")
	assert.Contains(t, out, "failed to fetch image")
	assert.Contains(t, out, "1 post(s) synced")
}

func TestRenderFeed_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderFeed(&buf, testResult(), outputJSON))

	var decoded feed.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Posts, 1)
	assert.Equal(t, "post-2", decoded.Posts[0].ID)
	assert.Empty(t, decoded.Posts[0].Asset.Data, "image bytes are not part of the JSON output")
	assert.Equal(t, []feed.AssetFailure{{PostID: "post-1", Reason: "failed to fetch image"}}, decoded.Failures)
}

func TestRenderFeed_NoFailures(t *testing.T) {
	t.Parallel()

	result := testResult()
	result.Failures = nil

	var buf bytes.Buffer
	require.NoError(t, renderFeed(&buf, result, outputTable))
	assert.NotContains(t, buf.String(), "could not be loaded")
}

func TestWatchSink_SerializesRenders(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dispatcher := feed.NewSerialDispatcher(watchBuffer)
	sink := newWatchSink(&out, outputJSON, dispatcher)

	const refreshes = 8
	var wg sync.WaitGroup
	for range refreshes {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sink(testResult(), nil)
		}()
		go func() {
			defer wg.Done()
			sink(nil, errors.New("offline"))
		}()
	}
	wg.Wait()
	dispatcher.Close()

	dec := json.NewDecoder(&out)
	rendered := 0
	for dec.More() {
		var doc map[string]any
		require.NoError(t, dec.Decode(&doc), "each render is a complete document")
		rendered++
	}
	assert.Equal(t, refreshes, rendered, "failed refreshes are logged, not printed")
}

func TestRenderStatuses(t *testing.T) {
	t.Parallel()

	synced := time.Now().Add(-time.Minute)
	statuses := map[string]*status.SyncStatus{
		"Zebra": {Phase: status.SyncPhaseFailed, Message: "Error loading posts.", AttemptCount: 3},
		"PhotoPost": {
			Phase:            status.SyncPhasePartial,
			LastSyncTime:     &synced,
			PostCount:        12,
			FailedAssetCount: 2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderStatuses(&buf, statuses, outputTable))

	out := buf.String()
	assert.Less(t, strings.Index(out, "PhotoPost"), strings.Index(out, "Zebra"), "collections are sorted")
	assert.Contains(t, out, "Partial")
	assert.Contains(t, out, "1 minute ago")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "Error loading posts.")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "日本語…", truncate("日本語テキスト", 4))
}

func TestRelativeTime(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "-", relativeTime(time.Time{}))
	assert.Equal(t, "3 days ago", relativeTime(time.Now().Add(-72*time.Hour)))
}
