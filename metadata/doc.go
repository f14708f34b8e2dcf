// Package metadata implements the track pipeline for out-of-band metadata
// carried in a media stream: ID3 tags, timed text, cue markers.
//
// A Pipeline pulls raw samples from an upstream Stream, decodes each into a
// typed value with a Parser, holds at most one decoded value, and releases it
// to a Consumer the first time Advance is called with a playback position at
// or past the value's timestamp. Delivery may happen on the goroutine calling
// Advance, or on a dispatch.Looper.
//
// The pipeline has no clock and no goroutines. The host drives it:
//
//	p, err := metadata.New[parser.Tag](parser.ID3{}, consumer,
//	    metadata.WithTarget(uiLooper),
//	    metadata.WithTrackIndex(2),
//	)
//	if err := p.Enable(format, src); err != nil { ... }
//	for playing {
//	    if err := p.Advance(ctx, clock.PositionUs()); err != nil {
//	        // the track has failed; other tracks are unaffected
//	    }
//	}
//
// A Pipeline is not safe for concurrent use; all calls must come from the
// goroutine that drives playback.
package metadata
