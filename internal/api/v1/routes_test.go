package v1_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/photofeed/internal/api"
	"github.com/stacklok/photofeed/internal/api/common"
	v1 "github.com/stacklok/photofeed/internal/api/v1"
	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/service"
	"github.com/stacklok/photofeed/internal/service/mocks"
)

var syncedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testResult() *feed.Result {
	return &feed.Result{
		Posts: []feed.PostRecord{
			{
				ID:        "b",
				Caption:   "second",
				Author:    "bob",
				CreatedAt: syncedAt.Add(-time.Minute),
				Asset:     feed.Asset{Data: []byte("pngdata"), Format: "png"},
			},
			{
				ID:        "a",
				Caption:   "first",
				Author:    "alice",
				CreatedAt: syncedAt.Add(-time.Hour),
				Asset:     feed.Asset{Data: []byte("jpg"), Format: "jpeg"},
			},
		},
		Failures: []feed.AssetFailure{{PostID: "c", Reason: "image fetch failed"}},
		SyncedAt: syncedAt,
	}
}

func newServer(t *testing.T) (http.Handler, *mocks.MockFeedService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockFeedService(ctrl)
	return api.NewServer(svc, api.WithMaxUploadSize(1<<20)), svc
}

func multipartBody(t *testing.T, image []byte, caption string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("caption", caption))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestGetFeed(t *testing.T) {
	t.Parallel()
	server, svc := newServer(t)

	svc.EXPECT().GetFeed(gomock.Any()).Return(testResult(), nil)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/feed", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp v1.FeedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 2)
	assert.Equal(t, "b", resp.Posts[0].ID)
	assert.Equal(t, "a", resp.Posts[1].ID)
	assert.Equal(t, "/v1/feed/b/image", resp.Posts[0].ImageURL)
	assert.Equal(t, "png", resp.Posts[0].ImageFormat)
	assert.Equal(t, 7, resp.Posts[0].ImageBytes)
	assert.Equal(t, "bob", resp.Posts[0].Author)
	assert.Equal(t, []feed.AssetFailure{{PostID: "c", Reason: "image fetch failed"}}, resp.Failures)
	assert.True(t, syncedAt.Equal(resp.SyncedAt))
	assert.NotContains(t, rr.Body.String(), "pngdata")
}

func TestGetFeed_Refresh(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/feed?refresh=true"},
		{http.MethodPost, "/v1/feed/refresh"},
	} {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			server, svc := newServer(t)
			svc.EXPECT().Refresh(gomock.Any()).Return(&feed.Result{SyncedAt: syncedAt}, nil)

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusOK, rr.Code)

			var resp v1.FeedResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotNil(t, resp.Posts)
			assert.Empty(t, resp.Posts)
		})
	}
}

func TestGetFeed_QueryFailure(t *testing.T) {
	t.Parallel()
	server, svc := newServer(t)

	svc.EXPECT().GetFeed(gomock.Any()).
		Return(nil, &feed.Error{Kind: feed.ErrorKindQueryFailure, Err: errors.New("503")})

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/feed", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "QueryFailure", resp.Kind)
	assert.Equal(t, feed.MessageSyncFailed, resp.Message)
}

func TestGetPostImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		setup       func(*mocks.MockFeedService)
		wantStatus  int
		wantType    string
		wantPayload string
	}{
		{
			name: "png",
			path: "/v1/feed/b/image",
			setup: func(m *mocks.MockFeedService) {
				m.EXPECT().GetPostImage(gomock.Any(), "b").
					Return(&feed.Asset{Data: []byte("pngdata"), Format: "png"}, nil)
			},
			wantStatus:  http.StatusOK,
			wantType:    "image/png",
			wantPayload: "pngdata",
		},
		{
			name: "jpeg",
			path: "/v1/feed/a/image",
			setup: func(m *mocks.MockFeedService) {
				m.EXPECT().GetPostImage(gomock.Any(), "a").
					Return(&feed.Asset{Data: []byte("jpg"), Format: "jpeg"}, nil)
			},
			wantStatus:  http.StatusOK,
			wantType:    "image/jpeg",
			wantPayload: "jpg",
		},
		{
			name: "unknown post",
			path: "/v1/feed/zz/image",
			setup: func(m *mocks.MockFeedService) {
				m.EXPECT().GetPostImage(gomock.Any(), "zz").Return(nil, service.ErrPostNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "feed not loaded",
			path: "/v1/feed/a/image",
			setup: func(m *mocks.MockFeedService) {
				m.EXPECT().GetPostImage(gomock.Any(), "a").Return(nil, service.ErrFeedNotLoaded)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "invalid id",
			path:       "/v1/feed/a.b/image",
			setup:      func(*mocks.MockFeedService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, svc := newServer(t)
			tt.setup(svc)

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rr.Header().Get("Content-Type"))
				assert.Equal(t, tt.wantPayload, rr.Body.String())
			}
		})
	}
}

func TestSubmitPost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		image       []byte
		caption     string
		key         string
		submitErr   error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "success",
			image:       []byte("img"),
			caption:     "hello",
			key:         "retry-key",
			wantStatus:  http.StatusCreated,
			wantMessage: feed.MessagePostSucceeded,
		},
		{
			name:        "missing image",
			caption:     "hello",
			submitErr:   &feed.Error{Kind: feed.ErrorKindMissingImage},
			wantStatus:  http.StatusBadRequest,
			wantMessage: feed.MessageMissingImage,
		},
		{
			name:        "not logged in",
			image:       []byte("img"),
			submitErr:   &feed.Error{Kind: feed.ErrorKindNotAuthenticated},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: feed.MessageNotAuthenticated,
		},
		{
			name:        "timeout",
			image:       []byte("img"),
			submitErr:   &feed.Error{Kind: feed.ErrorKindRemoteTimeout},
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: feed.MessageRemoteTimeout,
		},
		{
			name:        "write rejected",
			image:       []byte("img"),
			submitErr:   &feed.Error{Kind: feed.ErrorKindRemoteWriteFailure, Err: errors.New("quota exceeded")},
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Error posting photo: quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, svc := newServer(t)

			var receipt *feed.Receipt
			if tt.submitErr == nil {
				receipt = &feed.Receipt{PostID: "p1", IdempotencyKey: tt.key}
			}
			var wantImage []byte
			if tt.image != nil {
				wantImage = tt.image
			}
			svc.EXPECT().SubmitPost(gomock.Any(), wantImage, tt.caption, tt.key).Return(receipt, tt.submitErr)

			body, contentType := multipartBody(t, tt.image, tt.caption)
			req := httptest.NewRequest(http.MethodPost, "/v1/posts", body)
			req.Header.Set("Content-Type", contentType)
			if tt.key != "" {
				req.Header.Set(v1.IdempotencyKeyHeader, tt.key)
			}

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, req)
			require.Equal(t, tt.wantStatus, rr.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMessage, resp["message"])
		})
	}
}

func TestSubmitPost_NotMultipart(t *testing.T) {
	t.Parallel()
	server, _ := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/posts", bytes.NewBufferString(`{"caption":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("logged in", func(t *testing.T) {
		t.Parallel()
		server, svc := newServer(t)
		svc.EXPECT().CurrentUser(gomock.Any()).
			Return(&backend.Identity{UserID: "u1", Username: "alice", SessionToken: "r:secret"}, nil)

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp v1.SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
		assert.NotContains(t, rr.Body.String(), "r:secret")
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		server, svc := newServer(t)
		svc.EXPECT().CurrentUser(gomock.Any()).Return(nil, nil)

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("logout", func(t *testing.T) {
		t.Parallel()
		server, svc := newServer(t)
		svc.EXPECT().LogOut(gomock.Any()).Return(nil)

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/session/logout", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("logout with remote failure", func(t *testing.T) {
		t.Parallel()
		server, svc := newServer(t)
		svc.EXPECT().LogOut(gomock.Any()).Return(errors.New("server unreachable"))

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/session/logout", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp v1.LogoutResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "server unreachable", resp.Warning)
	})
}
