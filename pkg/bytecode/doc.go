// Package bytecode defines the RBC container format: the on-disk layout
// produced by the Ripley compiler and consumed by the VM at load time.
//
// The format is designed for:
//   - Zero-copy loading (all tables are read in place from one buffer)
//   - Compact per-function metadata (16-byte headers for the common case,
//     with an out-of-line overflow form when fields exceed compact widths)
//   - Lazy access (nothing beyond table locations is decoded up front)
//
// A container is a single contiguous little-endian buffer:
//
//	[header]                     fixed 104 bytes, magic "RBC1"
//	[function header table]      16-byte compact slots, one per function
//	[string table]               4-byte compact slots, one per string
//	[overflow string table]      8-byte full-width slots
//	[identifier hashes]          uint32 per identifier string
//	[string storage]             raw string bytes
//	[array buffer]               array literal data
//	[object key buffer]          object literal key data
//	[object value buffer]        object literal value data
//	[regexp table]               8-byte entries into regexp storage
//	[regexp storage]             compiled regexp patterns
//	[cjs module table]           {symbol ID, function index} pairs
//	[static cjs module table]    function indices
//	[function data]              bytecode, info blocks, overflow headers
//	[debug info]                 optional, located by header offset
//	[epilogue]                   optional bytes past the nominal file length
//
// This package owns the record layouts and the field-level encoding and
// decoding; the provider package interprets whole buffers. ContainerBuilder
// assembles well-formed containers and is used by the packer and by tests.
//
// Collections read from a buffer use index-based view types (Len/At) rather
// than materialized slices, so that opening a table never copies it.
package bytecode
