package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/photofeed/internal/feed"
)

func TestIDParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "object id", value: "xWMyZ4YEGZ", want: "xWMyZ4YEGZ"},
		{name: "dashes and underscores", value: "post_1-a", want: "post_1-a"},
		{name: "empty", value: "", wantErr: true},
		{name: "encoded slash", value: "a%2Fb", wantErr: true},
		{name: "encoded space", value: "a%20b", wantErr: true},
		{name: "dot", value: "a.b", wantErr: true},
		{name: "bad encoding", value: "%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.value)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := IDParam(req, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	tests := map[feed.ErrorKind]int{
		feed.ErrorKindMissingImage:       http.StatusBadRequest,
		feed.ErrorKindEncodingFailure:    http.StatusBadRequest,
		feed.ErrorKindNotAuthenticated:   http.StatusUnauthorized,
		feed.ErrorKindRemoteTimeout:      http.StatusGatewayTimeout,
		feed.ErrorKindRemoteWriteFailure: http.StatusBadGateway,
		feed.ErrorKindQueryFailure:       http.StatusBadGateway,
		feed.ErrorKindCanceled:           http.StatusServiceUnavailable,
		feed.ErrorKind(""):               http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusForKind(kind), "kind %q", kind)
	}
}

func TestWriteFeedError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteFeedError(rr, &feed.Error{Kind: feed.ErrorKindMissingImage, Message: "no image selected"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, string(feed.ErrorKindMissingImage), body.Kind)
	assert.Equal(t, feed.MessageMissingImage, body.Message)

	rr = httptest.NewRecorder()
	WriteFeedError(rr, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
