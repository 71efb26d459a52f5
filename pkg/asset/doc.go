// Package asset provides the persisted forms of a dialogue graph.
//
// # Formats
//
// Two record shapes are supported:
//
//   - [Asset]: the legacy parallel-array layout written by the engine editor.
//     Node kind and option count share one float "type code" (see
//     [EncodeTypeCode]). Stored as a Unity MonoBehaviour YAML file (.asset).
//   - [Document]: an explicit record per node with an integer option list and
//     per-option targets. Stored as JSON (.json) or YAML (.yaml).
//
// Both are converted from a [dialogue.Graph] by [FromGraph] and
// [DocumentFromGraph], and back by [ToGraph] and [Document.Graph].
//
// # Node identity
//
// Neither format stores node IDs. Decoding assigns IDs from node positions
// ("n0", "n1", ...), so decoding the same bytes twice yields graphs whose IDs
// agree. The HTTP API relies on this to address nodes across requests.
//
// # Corrupt input
//
// Decoding never trusts indices. Mismatched array lengths, option offsets
// outside the option pool, link targets outside the node list, and links
// into a Start node are reported as [errors.ErrCodeCorruptAsset] and no
// graph is returned.
//
// # Reading and writing
//
//	asset.WriteFile("Assets/Dialogue/Intro.asset", g, asset.Options{})
//
//	g, name, _ := asset.ReadFile("Assets/Dialogue/Intro.asset")
//
// [Encode] and [Decode] dispatch on [Format]; [FormatFromPath] picks the
// format from a file extension.
package asset
