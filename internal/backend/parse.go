package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/photofeed/internal/httpclient"
)

const (
	headerApplicationID    = "X-Parse-Application-Id"
	headerRESTAPIKey       = "X-Parse-REST-API-Key"
	headerSessionToken     = "X-Parse-Session-Token"
	headerRequestID        = "X-Parse-Request-Id"
	headerRevocableSession = "X-Parse-Revocable-Session"
)

// ParseConfig holds the connection settings of a Parse-compatible server
type ParseConfig struct {
	// ServerURL is the REST mount point, e.g. "https://parseapi.back4app.com"
	ServerURL string

	// ApplicationID identifies the app on the server
	ApplicationID string

	// RESTAPIKey is the optional client key
	RESTAPIKey string

	// QueryLimit caps the rows returned by QueryCollection; 0 keeps the server default
	QueryLimit int
}

// ParseClient implements Client against the Parse REST API
type ParseClient struct {
	cfg   ParseConfig
	http  httpclient.Client
	store IdentityStore
}

var _ Client = (*ParseClient)(nil)

// NewParseClient creates a new Parse REST client
func NewParseClient(cfg ParseConfig, httpClient httpclient.Client, store IdentityStore) (*ParseClient, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if cfg.ApplicationID == "" {
		return nil, fmt.Errorf("application id is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &ParseClient{cfg: cfg, http: httpClient, store: store}, nil
}

// QueryCollection runs GET /classes/{name} with an order clause
func (c *ParseClient) QueryCollection(
	ctx context.Context, name, sortField string, descending bool,
) ([]RawRecord, error) {
	const op = "query collection"

	query := url.Values{}
	if sortField != "" {
		order := sortField
		if descending {
			order = "-" + sortField
		}
		query.Set("order", order)
	}
	if c.cfg.QueryLimit > 0 {
		query.Set("limit", strconv.Itoa(c.cfg.QueryLimit))
	}

	endpoint := c.endpoint("classes", name)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	header := c.baseHeader()
	// Collections may be readable anonymously; attach the session when there is one
	if identity, err := c.store.Load(ctx); err == nil && identity.Authenticated() {
		header.Set(headerSessionToken, identity.SessionToken)
	}

	body, err := c.http.Get(ctx, endpoint, header)
	if err != nil {
		return nil, newRemoteError(op, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, &RemoteError{Op: op, Message: "malformed response body"}
	}

	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return nil, &RemoteError{Op: op, Message: "response has no results array"}
	}

	rows := make([]RawRecord, 0, len(results.Array()))
	for _, item := range results.Array() {
		row := RawRecord{
			ID:   item.Get(FieldObjectID).String(),
			Data: []byte(item.Raw),
		}
		if created := item.Get(FieldCreatedAt); created.Exists() {
			if ts, err := time.Parse(time.RFC3339Nano, created.String()); err == nil {
				row.CreatedAt = ts
			}
		}
		rows = append(rows, row)
	}

	slog.DebugContext(ctx, "Queried collection", "collection", name, "rows", len(rows))
	return rows, nil
}

// FetchAsset downloads the file at ref.URL
func (c *ParseClient) FetchAsset(ctx context.Context, ref AssetRef) ([]byte, error) {
	const op = "fetch asset"
	if ref.IsZero() {
		return nil, &RemoteError{Op: op, Err: ErrMissingAssetRef}
	}

	header := http.Header{}
	header.Set("Accept", "image/*")
	data, err := c.http.Get(ctx, ref.URL, header)
	if err != nil {
		return nil, newRemoteError(op, err)
	}
	return data, nil
}

// CurrentIdentity returns the identity held in the store
func (c *ParseClient) CurrentIdentity(ctx context.Context) (*Identity, error) {
	identity, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if !identity.Authenticated() {
		return nil, nil
	}
	return identity, nil
}

// UploadFile runs POST /files/{name} with the raw payload
func (c *ParseClient) UploadFile(
	ctx context.Context, identity *Identity, name, contentType string, data []byte, requestID string,
) (AssetRef, error) {
	const op = "upload file"
	if !identity.Authenticated() {
		return AssetRef{}, &RemoteError{Op: op, Err: ErrNotAuthenticated}
	}

	header := c.sessionHeader(identity, requestID)
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method:      http.MethodPost,
		URL:         c.endpoint("files", name),
		Header:      header,
		Body:        data,
		ContentType: contentType,
	})
	if err != nil {
		return AssetRef{}, newRemoteError(op, err)
	}

	ref := AssetRef{
		Name: gjson.GetBytes(resp.Body, "name").String(),
		URL:  gjson.GetBytes(resp.Body, "url").String(),
	}
	if ref.IsZero() {
		return AssetRef{}, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "response has no file url"}
	}
	return ref, nil
}

// InsertRecord runs POST /classes/{collection}
func (c *ParseClient) InsertRecord(
	ctx context.Context, identity *Identity, collection string, fields Fields, requestID string,
) (string, error) {
	const op = "insert record"
	if !identity.Authenticated() {
		return "", &RemoteError{Op: op, Err: ErrNotAuthenticated}
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return "", &RemoteError{Op: op, Err: fmt.Errorf("failed to encode fields: %w", err)}
	}

	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method:      http.MethodPost,
		URL:         c.endpoint("classes", collection),
		Header:      c.sessionHeader(identity, requestID),
		Body:        payload,
		ContentType: "application/json",
	})
	if err != nil {
		return "", newRemoteError(op, err)
	}

	objectID := gjson.GetBytes(resp.Body, FieldObjectID).String()
	if objectID == "" {
		return "", &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "response has no objectId"}
	}
	return objectID, nil
}

// LogIn runs POST /login and stores the returned session
func (c *ParseClient) LogIn(ctx context.Context, username, password string) (*Identity, error) {
	const op = "log in"

	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, &RemoteError{Op: op, Err: err}
	}

	header := c.baseHeader()
	header.Set(headerRevocableSession, "1")
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method:      http.MethodPost,
		URL:         c.endpoint("login"),
		Header:      header,
		Body:        payload,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, newRemoteError(op, err)
	}

	identity := &Identity{
		UserID:       gjson.GetBytes(resp.Body, FieldObjectID).String(),
		Username:     gjson.GetBytes(resp.Body, "username").String(),
		SessionToken: gjson.GetBytes(resp.Body, "sessionToken").String(),
	}
	if !identity.Authenticated() {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "response has no session token"}
	}

	if err := c.store.Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to store identity: %w", err)
	}
	return identity, nil
}

// LogOut revokes the session remotely and always clears it locally.
// A session the server no longer knows is treated as already logged out.
func (c *ParseClient) LogOut(ctx context.Context) error {
	const op = "log out"

	identity, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	if !identity.Authenticated() {
		return nil
	}

	var remoteErr error
	_, err = c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoint("logout"),
		Header: c.sessionHeader(identity, ""),
	})
	if err != nil {
		converted := newRemoteError(op, err)
		if converted.Code != CodeInvalidSessionToken {
			remoteErr = converted
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return remoteErr
}

func (c *ParseClient) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, c.cfg.ServerURL)
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.Join(escaped, "/")
}

func (c *ParseClient) baseHeader() http.Header {
	header := http.Header{}
	header.Set(headerApplicationID, c.cfg.ApplicationID)
	if c.cfg.RESTAPIKey != "" {
		header.Set(headerRESTAPIKey, c.cfg.RESTAPIKey)
	}
	return header
}

func (c *ParseClient) sessionHeader(identity *Identity, requestID string) http.Header {
	header := c.baseHeader()
	header.Set(headerSessionToken, identity.SessionToken)
	if requestID != "" {
		header.Set(headerRequestID, requestID)
	}
	return header
}
