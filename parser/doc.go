// Package parser provides metadata.Parser implementations for the payload
// formats carried on metadata tracks.
//
//   - ID3 decodes ID3v2.3 and ID3v2.4 tags (application/id3), the timed
//     metadata format of HLS and MPEG-TS streams.
//   - JSON decodes JSON cue payloads into a struct and optionally validates
//     it with struct tags.
//   - Text decodes timed text, accepting UTF-8 and BOM-marked UTF-16.
//   - Compressed decompresses payloads whose mime type carries a codec
//     suffix, such as application/json+zstd, before delegating.
//   - Func adapts a pair of functions.
package parser
