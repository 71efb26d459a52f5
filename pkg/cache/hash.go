package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// renderKey digests a graph hash together with the options that shape the
// artifact. Keys look like "render:<sha256>".
func renderKey(graphHash string, opts RenderKeyOpts) string {
	h := sha256.New()
	h.Write([]byte(graphHash))
	h.Write([]byte{0})
	optData, _ := json.Marshal(opts)
	h.Write(optData)
	return "render:" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. Graphs are hashed through their
// canonical JSON document so that equal graphs share cache entries.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
