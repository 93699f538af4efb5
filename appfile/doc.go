// Package appfile maps friend state to and from the application file, a
// single JSON document:
//
//	{
//	  "friends":  [ {"id": "...", "name": "...", "status": "accepted", "key": "<base64>", "accepted_at": "..."} ],
//	  "requests": [ {"id": "...", "name": "...", "message": "...", "requested_at": "..."} ]
//	}
//
// The file location is a directory and file name injected through Config.
// Writes replace the file atomically. When a passphrase is configured the
// document is sealed with crypto.EncryptedFileStore instead of being written
// as plain JSON.
//
// Decoding is all-or-nothing: a missing array, a malformed entity or an ID
// listed both as a friend and as a request fails with failure.ErrParse and
// returns no store.
package appfile
