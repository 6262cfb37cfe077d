// Package store provides durable persistence for parley conversation state.
//
// # Overview
//
// The store holds exactly two JSON-serializable maps under fixed keys:
//
//   - "chats": conversation id -> ordered message list
//   - "chatTitles": conversation id -> display title
//
// Both maps survive process restarts; a key that has never been written
// reads back as an empty map. The registry is the only component that
// writes to the store, and it flushes synchronously after every mutation,
// so a crash immediately after a successful registry call never loses that
// mutation.
//
// # SQLite implementation
//
// SQLiteStore persists the maps as JSON blobs in a single key-value table:
//
//	st, err := store.NewSQLiteStore("/path/to/parley.db")
//
// The schema is created on first open and the database runs in WAL mode.
//
// # Data types
//
// Message and Reference are the shared conversation record types. They are
// defined here because the persisted JSON is their canonical encoding;
// outbound wire payloads use their own trimmed-down structs in the api
// package.
package store
