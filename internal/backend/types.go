package backend

import (
	"time"

	"github.com/tidwall/gjson"
)

// Remote schema field names.
const (
	FieldObjectID  = "objectId"
	FieldCreatedAt = "createdAt"
	FieldCaption   = "caption"
	FieldUsername  = "username"
	FieldPhoto     = "photo"
)

// AssetRef points at a binary payload held by the remote store.
type AssetRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// IsZero reports whether the reference carries no location.
func (r AssetRef) IsZero() bool {
	return r.URL == ""
}

// FilePointer returns the JSON shape used to attach a file to a record.
func (r AssetRef) FilePointer() map[string]any {
	return map[string]any{
		"__type": "File",
		"name":   r.Name,
		"url":    r.URL,
	}
}

// Identity is an authenticated user session.
type Identity struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	SessionToken string `json:"sessionToken"`
}

// Authenticated reports whether the identity carries a usable session.
func (i *Identity) Authenticated() bool {
	return i != nil && i.SessionToken != ""
}

// RawRecord is one row returned by a collection query. Data holds the raw JSON
// object so callers can read schema fields without a fixed Go type.
type RawRecord struct {
	ID        string
	CreatedAt time.Time
	Data      []byte
}

// String returns a string field, or "" when the field is absent.
func (r RawRecord) String(field string) string {
	return gjson.GetBytes(r.Data, field).String()
}

// Asset returns the file reference stored under field.
func (r RawRecord) Asset(field string) (AssetRef, bool) {
	v := gjson.GetBytes(r.Data, field)
	if !v.IsObject() {
		return AssetRef{}, false
	}
	ref := AssetRef{
		Name: v.Get("name").String(),
		URL:  v.Get("url").String(),
	}
	if ref.IsZero() {
		return AssetRef{}, false
	}
	return ref, true
}

// Fields are the column values of a record to insert.
type Fields map[string]any
