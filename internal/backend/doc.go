// Package backend defines the capability surface the feed needs from the hosted
// remote store, and a REST implementation of it for Parse-compatible servers.
//
// The remote store is treated as an opaque collaborator: the rest of the module
// only sees the Client interface, which covers querying a collection, fetching
// a binary asset, uploading a file, inserting a record and the session
// operations (log in, log out, current identity).
//
// Field names of the post collection are implicit in the remote schema:
//
//   - objectId: unique identifier assigned by the store
//   - createdAt: creation timestamp assigned by the store
//   - caption: free-form text
//   - username: display name of the author
//   - photo: file pointer ({"__type":"File","name":...,"url":...})
package backend
