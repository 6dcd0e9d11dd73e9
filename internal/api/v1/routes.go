// Package v1 provides the gateway's REST handlers.
package v1

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/photofeed/internal/api/common"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/service"
	"github.com/stacklok/photofeed/internal/versions"
)

// IdempotencyKeyHeader carries the key of a submission being retried
const IdempotencyKeyHeader = "Idempotency-Key"

// Routes holds the handlers' dependencies
type Routes struct {
	service       service.FeedService
	maxUploadSize int64
}

// Router creates the /v1 router
func Router(svc service.FeedService, maxUploadSize int64) http.Handler {
	routes := &Routes{service: svc, maxUploadSize: maxUploadSize}

	r := chi.NewRouter()
	r.Get("/feed", routes.getFeed)
	r.Post("/feed/refresh", routes.refreshFeed)
	r.Get("/feed/{id}/image", routes.getPostImage)
	r.Post("/posts", routes.submitPost)
	r.Get("/session", routes.getSession)
	r.Post("/session/logout", routes.logOut)
	return r
}

// HealthRouter creates the health, readiness and version routes
func HealthRouter(svc service.FeedService) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func readinessHandler(svc service.FeedService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteJSONResponse(w, HealthResponse{Status: "not ready", Error: err.Error()},
				http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, HealthResponse{Status: "ready"}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}

// getFeed handles GET /v1/feed. ?refresh=true forces a sync.
func (rr *Routes) getFeed(w http.ResponseWriter, r *http.Request) {
	var (
		result *feed.Result
		err    error
	)
	if r.URL.Query().Get("refresh") == "true" {
		result, err = rr.service.Refresh(r.Context())
	} else {
		result, err = rr.service.GetFeed(r.Context())
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load feed", "error", err)
		common.WriteFeedError(w, err)
		return
	}
	common.WriteJSONResponse(w, newFeedResponse(result), http.StatusOK)
}

// refreshFeed handles POST /v1/feed/refresh
func (rr *Routes) refreshFeed(w http.ResponseWriter, r *http.Request) {
	result, err := rr.service.Refresh(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to refresh feed", "error", err)
		common.WriteFeedError(w, err)
		return
	}
	common.WriteJSONResponse(w, newFeedResponse(result), http.StatusOK)
}

// getPostImage handles GET /v1/feed/{id}/image
func (rr *Routes) getPostImage(w http.ResponseWriter, r *http.Request) {
	id, err := common.IDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := rr.service.GetPostImage(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, service.ErrFeedNotLoaded):
		common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		common.WriteErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := mime.TypeByExtension("." + asset.Format)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Data)
}

// submitPost handles POST /v1/posts with a multipart body holding an
// optional "image" file and a "caption" field
func (rr *Routes) submitPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rr.maxUploadSize)
	if err := r.ParseMultipartForm(rr.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteErrorResponse(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
				http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteErrorResponse(w, "invalid multipart body: "+err.Error(), http.StatusBadRequest)
		return
	}

	img, err := readFormFile(r, "image")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := rr.service.SubmitPost(r.Context(), img, r.FormValue("caption"),
		r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		common.WriteFeedError(w, err)
		return
	}
	common.WriteJSONResponse(w, SubmitResponse{
		Message: feed.UserMessage(nil),
		Receipt: receipt,
	}, http.StatusCreated)
}

// getSession handles GET /v1/session
func (rr *Routes) getSession(w http.ResponseWriter, r *http.Request) {
	identity, err := rr.service.CurrentUser(r.Context())
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !identity.Authenticated() {
		common.WriteJSONResponse(w, common.ErrorResponse{
			Error:   "not authenticated",
			Kind:    string(feed.ErrorKindNotAuthenticated),
			Message: feed.MessageNotAuthenticated,
		}, http.StatusUnauthorized)
		return
	}
	common.WriteJSONResponse(w, SessionResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
	}, http.StatusOK)
}

// logOut handles POST /v1/session/logout. The local session is gone even
// when the remote call fails, so that case is reported but not as a failure.
func (rr *Routes) logOut(w http.ResponseWriter, r *http.Request) {
	if err := rr.service.LogOut(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Remote logout failed", "error", err)
		common.WriteJSONResponse(w, LogoutResponse{Status: "logged out", Warning: err.Error()}, http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readFormFile returns the content of a form file, or nil when the field is absent
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, nil
}

func newFeedResponse(result *feed.Result) FeedResponse {
	resp := FeedResponse{
		Posts:    make([]PostSummary, 0, len(result.Posts)),
		Failures: result.Failures,
		SyncedAt: result.SyncedAt,
	}
	for _, post := range result.Posts {
		resp.Posts = append(resp.Posts, PostSummary{
			ID:          post.ID,
			Caption:     post.Caption,
			Author:      post.Author,
			CreatedAt:   post.CreatedAt,
			ImageURL:    "/v1/feed/" + url.PathEscape(post.ID) + "/image",
			ImageFormat: post.Asset.Format,
			ImageBytes:  post.Asset.Size(),
		})
	}
	return resp
}
