// Package stream provides upstream sample sources for metadata pipelines.
//
// Every source implements metadata.Stream: Pull never blocks, returns
// PullNothing when no sample is ready and keeps a sample until it is pulled.
//
//   - Samples: a fixed list of samples, seekable, with an optional leading
//     format change.
//   - Buffered: drains an Iterator on a background goroutine into a bounded
//     buffer, so a slow or blocking producer never stalls the playback loop.
//   - Tap and Counting wrap any stream to observe what is pulled.
//
// Iterators are pull-based producers that may block. Slice, Map, Filter and
// Concat build and compose them:
//
//	recs := stream.Slice(cues)
//	samples := stream.Map(recs, func(_ context.Context, c Cue) (metadata.Sample, error) {
//	    return metadata.Sample{Data: c.Payload, TimeUs: c.StartUs}, nil
//	})
//	src := stream.FromIterator(ctx, samples, 8, stream.WithFormat(format))
//	defer src.Close()
package stream
