// Package codec decompresses metadata payloads that were compressed before
// being muxed into the stream.
//
// Supported algorithms:
//   - None: payload is stored as-is
//   - Zstd: klauspost/compress/zstd, pooled decoders
//   - S2: klauspost/compress/s2 block format
//   - Gzip: klauspost/compress/gzip
//   - LZ4: pierrec/lz4 block format
//
// Each algorithm is selected by the mime type suffix the payload was tagged
// with, for example "application/json+zstd"; see ForSuffix and SplitMimeType.
//
// Digest returns an xxHash64 fingerprint of a payload, used in log fields to
// correlate a sample across pull, parse, and dispatch.
package codec
