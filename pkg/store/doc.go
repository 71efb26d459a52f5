// Package store persists named dialogues.
//
// A [Store] converts graphs to the engine's [asset.Asset] layout and keeps
// them in a [Backend]. Backends only know how to create, replace, fetch,
// list and delete assets by name:
//   - [FileStore]: one Unity .asset file per dialogue in a folder (CLI, editor)
//   - [MemoryStore]: in-process map for development and tests
//   - [RedisStore]: Unity YAML blobs under a key prefix
//   - [MongoStore]: one BSON document per dialogue
//   - [S3Store]: Unity YAML objects under a key prefix
//
// # Naming
//
// [Store.Save] never overwrites. When "Intro" already exists the dialogue is
// stored as "Intro (1)", then "Intro (2)" and so on, and the name actually
// used is returned. [Store.Put] replaces in place and is what the HTTP API
// uses for PUT.
//
// # Usage
//
//	fs, err := store.NewFileStore("Assets/Dialogue", "")
//	if err != nil {
//	    return err
//	}
//	s := store.New(fs)
//	defer s.Close()
//
//	name, err := s.Save(ctx, "Intro", graph) // "Intro" or "Intro (n)"
//	g, err := s.Load(ctx, name)
package store
