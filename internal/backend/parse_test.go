package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/backend/mocks"
	"github.com/stacklok/photofeed/internal/httpclient"
)

const (
	testAppID  = "test-app"
	testAPIKey = "test-key"
	testToken  = "r:session-token"
)

func newTestClient(t *testing.T, serverURL string, store backend.IdentityStore) *backend.ParseClient {
	t.Helper()
	client, err := backend.NewParseClient(backend.ParseConfig{
		ServerURL:     serverURL + "/",
		ApplicationID: testAppID,
		RESTAPIKey:    testAPIKey,
	}, httpclient.NewDefaultClient(5*time.Second), store)
	require.NoError(t, err)
	return client
}

func TestNewParseClient_Validation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	httpClient := httpclient.NewDefaultClient(0)

	tests := []struct {
		name    string
		cfg     backend.ParseConfig
		http    httpclient.Client
		store   backend.IdentityStore
		wantErr string
	}{
		{name: "missing server url", cfg: backend.ParseConfig{ApplicationID: "a"}, http: httpClient, store: store, wantErr: "server url is required"},
		{name: "missing app id", cfg: backend.ParseConfig{ServerURL: "http://x"}, http: httpClient, store: store, wantErr: "application id is required"},
		{name: "missing http client", cfg: backend.ParseConfig{ServerURL: "http://x", ApplicationID: "a"}, store: store, wantErr: "http client is required"},
		{name: "missing store", cfg: backend.ParseConfig{ServerURL: "http://x", ApplicationID: "a"}, http: httpClient, wantErr: "identity store is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := backend.NewParseClient(tt.cfg, tt.http, tt.store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseClient_QueryCollection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classes/PhotoPost", r.URL.Path)
		assert.Equal(t, "-createdAt", r.URL.Query().Get("order"))
		assert.Equal(t, testAppID, r.Header.Get("X-Parse-Application-Id"))
		assert.Equal(t, testAPIKey, r.Header.Get("X-Parse-REST-API-Key"))
		assert.Equal(t, testToken, r.Header.Get("X-Parse-Session-Token"))
		_, _ = w.Write([]byte(`{"results":[
			{"objectId":"a","createdAt":"2024-09-22T12:00:00.000Z","caption":"hi","username":"dave",
			 "photo":{"__type":"File","name":"a.jpg","url":"http://files/a.jpg"}},
			{"objectId":"b","createdAt":"2024-09-21T12:00:00.000Z","caption":"","username":"ana"}
		]}`))
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(&backend.Identity{SessionToken: testToken}, nil)

	client := newTestClient(t, server.URL, store)
	rows, err := client.QueryCollection(context.Background(), "PhotoPost", "createdAt", true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, time.Date(2024, 9, 22, 12, 0, 0, 0, time.UTC), rows[0].CreatedAt)
	assert.Equal(t, "hi", rows[0].String(backend.FieldCaption))
	assert.Equal(t, "dave", rows[0].String(backend.FieldUsername))
	ref, ok := rows[0].Asset(backend.FieldPhoto)
	require.True(t, ok)
	assert.Equal(t, backend.AssetRef{Name: "a.jpg", URL: "http://files/a.jpg"}, ref)

	assert.Equal(t, "b", rows[1].ID)
	_, ok = rows[1].Asset(backend.FieldPhoto)
	assert.False(t, ok)
}

func TestParseClient_QueryCollection_Anonymous(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Parse-Session-Token"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(nil, nil)

	rows, err := newTestClient(t, server.URL, store).QueryCollection(context.Background(), "PhotoPost", "createdAt", true)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseClient_QueryCollection_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    int
		wantMessage string
	}{
		{name: "server error with parse payload", status: http.StatusBadRequest, body: `{"code":209,"error":"invalid session token"}`, wantCode: 209, wantMessage: "invalid session token"},
		{name: "server error without payload", status: http.StatusBadGateway, body: `bad gateway`, wantMessage: "502 Bad Gateway"},
		{name: "payload without error message", status: http.StatusBadRequest, body: `{"code":141}`, wantMessage: "400 Bad Request"},
		{name: "payload with structured error", status: http.StatusBadRequest, body: `{"code":141,"error":{"reason":"x"}}`, wantMessage: "400 Bad Request"},
		{name: "truncated payload", status: http.StatusBadRequest, body: `{"code":209,"error":"invalid`, wantMessage: "400 Bad Request"},
		{name: "malformed body", status: http.StatusOK, body: `{"results":`, wantMessage: "malformed response body"},
		{name: "missing results", status: http.StatusOK, body: `{"count":0}`, wantMessage: "response has no results array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ctrl := gomock.NewController(t)
			store := mocks.NewMockIdentityStore(ctrl)
			store.EXPECT().Load(gomock.Any()).Return(nil, nil)

			_, err := newTestClient(t, server.URL, store).QueryCollection(context.Background(), "PhotoPost", "createdAt", true)
			require.Error(t, err)

			var remoteErr *backend.RemoteError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, tt.wantCode, remoteErr.Code)
			assert.Contains(t, remoteErr.Message, tt.wantMessage)
		})
	}
}

func TestParseClient_FetchAsset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, server.URL, mocks.NewMockIdentityStore(ctrl))

	data, err := client.FetchAsset(context.Background(), backend.AssetRef{Name: "a.jpg", URL: server.URL + "/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	_, err = client.FetchAsset(context.Background(), backend.AssetRef{URL: server.URL + "/missing.jpg"})
	var remoteErr *backend.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)

	_, err = client.FetchAsset(context.Background(), backend.AssetRef{})
	require.ErrorIs(t, err, backend.ErrMissingAssetRef)
}

func TestParseClient_UploadAndInsert(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testToken, r.Header.Get("X-Parse-Session-Token"))
		switch r.URL.Path {
		case "/files/photo.jpg":
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			assert.Equal(t, "req-1-file", r.Header.Get("X-Parse-Request-Id"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, []byte("jpeg"), body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"name":"abc_photo.jpg","url":"http://files/abc_photo.jpg"}`))
		case "/classes/PhotoPost":
			assert.Equal(t, "req-1", r.Header.Get("X-Parse-Request-Id"))
			var fields map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
			assert.Equal(t, "hello", fields["caption"])
			assert.Equal(t, "dave", fields["username"])
			photo, _ := fields["photo"].(map[string]any)
			assert.Equal(t, "File", photo["__type"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"objectId":"new-id","createdAt":"2024-09-22T12:00:00.000Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, server.URL, mocks.NewMockIdentityStore(ctrl))
	identity := &backend.Identity{Username: "dave", SessionToken: testToken}

	ref, err := client.UploadFile(context.Background(), identity, "photo.jpg", "image/jpeg", []byte("jpeg"), "req-1-file")
	require.NoError(t, err)
	assert.Equal(t, "abc_photo.jpg", ref.Name)

	id, err := client.InsertRecord(context.Background(), identity, "PhotoPost", backend.Fields{
		backend.FieldCaption:  "hello",
		backend.FieldUsername: "dave",
		backend.FieldPhoto:    ref.FilePointer(),
	}, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
}

func TestParseClient_WritesRequireSession(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, "http://unused.invalid", mocks.NewMockIdentityStore(ctrl))

	_, err := client.UploadFile(context.Background(), nil, "photo.jpg", "image/jpeg", []byte("x"), "")
	require.ErrorIs(t, err, backend.ErrNotAuthenticated)

	_, err = client.InsertRecord(context.Background(), &backend.Identity{Username: "dave"}, "PhotoPost", nil, "")
	require.ErrorIs(t, err, backend.ErrNotAuthenticated)
}

func TestParseClient_LogInAndLogOut(t *testing.T) {
	t.Parallel()

	var loggedOut atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			assert.Equal(t, "1", r.Header.Get("X-Parse-Revocable-Session"))
			var creds map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds["password"] != "secret" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":101,"error":"Invalid username/password."}`))
				return
			}
			_, _ = w.Write([]byte(`{"objectId":"u1","username":"dave","sessionToken":"` + testToken + `"}`))
		case "/logout":
			assert.Equal(t, testToken, r.Header.Get("X-Parse-Session-Token"))
			loggedOut.Store(true)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	want := &backend.Identity{UserID: "u1", Username: "dave", SessionToken: testToken}
	store.EXPECT().Save(gomock.Any(), want).Return(nil)
	store.EXPECT().Load(gomock.Any()).Return(want, nil)
	store.EXPECT().Clear(gomock.Any()).Return(nil)

	client := newTestClient(t, server.URL, store)

	_, err := client.LogIn(context.Background(), "dave", "wrong")
	var remoteErr *backend.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, backend.CodeObjectNotFound, remoteErr.Code)

	identity, err := client.LogIn(context.Background(), "dave", "secret")
	require.NoError(t, err)
	assert.Equal(t, want, identity)

	require.NoError(t, client.LogOut(context.Background()))
	assert.True(t, loggedOut.Load())
}

func TestParseClient_LogOut_InvalidSessionStillClears(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":209,"error":"Invalid session token"}`))
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(&backend.Identity{SessionToken: testToken}, nil)
	store.EXPECT().Clear(gomock.Any()).Return(nil)

	require.NoError(t, newTestClient(t, server.URL, store).LogOut(context.Background()))
}

func TestParseClient_LogOut_RemoteFailureStillClears(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	store.EXPECT().Load(gomock.Any()).Return(&backend.Identity{SessionToken: testToken}, nil)
	store.EXPECT().Clear(gomock.Any()).Return(nil)

	err := newTestClient(t, server.URL, store).LogOut(context.Background())
	var remoteErr *backend.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
}

func TestParseClient_CurrentIdentity(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdentityStore(ctrl)
	gomock.InOrder(
		store.EXPECT().Load(gomock.Any()).Return(nil, nil),
		store.EXPECT().Load(gomock.Any()).Return(&backend.Identity{Username: "dave"}, nil),
		store.EXPECT().Load(gomock.Any()).Return(&backend.Identity{Username: "dave", SessionToken: testToken}, nil),
	)

	client := newTestClient(t, "http://unused.invalid", store)

	identity, err := client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)

	identity, err = client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity, "identity without a session token is unauthenticated")

	identity, err = client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dave", identity.Username)
}
