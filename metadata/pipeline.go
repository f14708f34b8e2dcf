package metadata

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/metatrack/codec"
	"github.com/kbukum/metatrack/dispatch"
	"github.com/kbukum/metatrack/errors"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/observability"
)

// Pipeline renders one metadata track. See the package documentation.
type Pipeline[T any] struct {
	parser   Parser[T]
	consumer Consumer[T]
	handler  *dispatch.Handler[T]

	stream Stream
	format Format
	sample Sample

	pending          *Decoded[T]
	inputStreamEnded bool

	trackIndex int
	trackID    string
	log        *logger.Logger
	metrics    *observability.PipelineMetrics
	tracer     trace.Tracer
}

// New creates a pipeline that decodes with parser and delivers to consumer.
func New[T any](parser Parser[T], consumer Consumer[T], opts ...Option) (*Pipeline[T], error) {
	if parser == nil {
		return nil, errors.InvalidInput("parser", "must not be nil")
	}
	if consumer == nil {
		return nil, errors.InvalidInput("consumer", "must not be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.trackID == "" {
		o.trackID = uuid.NewString()
	}
	if o.log == nil {
		o.log = logger.Get("metadata")
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer(observability.InstrumentationName)
	}

	p := &Pipeline[T]{
		parser:     parser,
		consumer:   consumer,
		trackIndex: o.trackIndex,
		trackID:    o.trackID,
		log:        o.log.WithTrack(o.trackIndex, o.trackID),
		metrics:    o.metrics,
		tracer:     o.tracer,
	}

	if o.target != nil {
		var hopts []dispatch.HandlerOption
		if o.keepStale {
			hopts = append(hopts, dispatch.KeepStale())
		}
		h, err := dispatch.NewHandler(o.target, consumer.OnMetadata, hopts...)
		if err != nil {
			return nil, errors.Internal(err)
		}
		p.handler = h
	}
	return p, nil
}

// TrackType returns TrackTypeMetadata.
func (p *Pipeline[T]) TrackType() TrackType { return TrackTypeMetadata }

// TrackID returns the track identifier.
func (p *Pipeline[T]) TrackID() string { return p.trackID }

// CapabilityCheck reports whether the parser handles mimeType. It has no side
// effects.
func (p *Pipeline[T]) CapabilityCheck(mimeType string) Support {
	if p.parser.CanParse(mimeType) {
		return SupportHandled
	}
	return SupportUnsupportedType
}

// SupportsFormat is CapabilityCheck for a Format.
func (p *Pipeline[T]) SupportsFormat(f Format) Support {
	return p.CapabilityCheck(f.SampleMimeType)
}

// Enable attaches stream, whose samples have format f, and resets the
// pipeline.
func (p *Pipeline[T]) Enable(f Format, stream Stream) error {
	if stream == nil {
		return errors.InvalidInput("stream", "must not be nil").ForTrack(p.trackIndex, p.trackID)
	}
	if p.SupportsFormat(f) != SupportHandled {
		return errors.UnsupportedFormat(f.SampleMimeType).ForTrack(p.trackIndex, p.trackID)
	}
	p.stream = stream
	p.format = f
	p.clear()
	p.log.Debug("track enabled", logger.Fields(logger.FieldMimeType, f.SampleMimeType))
	return nil
}

// Disable discards any pending value and detaches the stream.
func (p *Pipeline[T]) Disable() {
	p.clear()
	p.stream = nil
	p.log.Debug("track disabled")
}

// Reset clears the pending slot and the end-of-stream flag, as after a seek.
// A value already handed to the target looper is dropped when it arrives,
// unless the pipeline was built WithStaleDelivery.
func (p *Pipeline[T]) Reset() {
	p.clear()
	p.metrics.RecordReset(context.Background(), p.trackID)
}

func (p *Pipeline[T]) clear() {
	p.pending = nil
	p.inputStreamEnded = false
	if p.handler != nil {
		p.handler.Invalidate()
	}
}

// IsFinished reports that the stream has ended and nothing is pending.
func (p *Pipeline[T]) IsFinished() bool {
	return p.inputStreamEnded && p.pending == nil
}

// IsReady always returns true: parsing is local and synchronous.
func (p *Pipeline[T]) IsReady() bool { return true }

// State returns the current state.
func (p *Pipeline[T]) State() State {
	switch {
	case p.pending != nil:
		return StateHolding
	case p.inputStreamEnded:
		return StateDrained
	default:
		return StateEmptyActive
	}
}

// Format returns the format of the enabled stream, as last reported by it.
func (p *Pipeline[T]) Format() Format { return p.format }

// Pending returns the decoded value waiting for its timestamp, if any.
func (p *Pipeline[T]) Pending() (Decoded[T], bool) {
	if p.pending == nil {
		return Decoded[T]{}, false
	}
	return *p.pending, true
}

// Advance runs one tick at playback position positionUs.
//
// If nothing is pending and the stream has not ended, it pulls one sample
// and decodes it. If the pending value's timestamp is at or before
// positionUs, the value is dispatched. A slot freed by dispatch is refilled
// in the same call when no pull has happened yet; the refilled value waits
// for the next call. At most one sample is pulled and at most one value is
// dispatched per call.
//
// A returned error is fatal for this track.
func (p *Pipeline[T]) Advance(ctx context.Context, positionUs int64) error {
	if p.stream == nil {
		return errors.NotEnabled().ForTrack(p.trackIndex, p.trackID)
	}

	pulled := false
	if p.canPull() {
		if err := p.readSample(ctx); err != nil {
			return err
		}
		pulled = true
	}

	if !p.due(positionUs) {
		return nil
	}
	if err := p.dispatch(ctx, positionUs); err != nil {
		return err
	}

	if pulled || !p.canPull() {
		return nil
	}
	return p.readSample(ctx)
}

func (p *Pipeline[T]) canPull() bool {
	return !p.inputStreamEnded && p.pending == nil
}

func (p *Pipeline[T]) due(positionUs int64) bool {
	return p.pending != nil && p.pending.TimeUs <= positionUs
}

func (p *Pipeline[T]) readSample(ctx context.Context) error {
	p.sample.Clear()
	result, err := p.stream.Pull(&p.format, &p.sample)
	if err != nil {
		p.log.Error("stream pull failed", logger.ErrorFields("pull", err))
		return errors.StreamFailed(err).ForTrack(p.trackIndex, p.trackID)
	}

	switch result {
	case PullFormat:
		if p.SupportsFormat(p.format) != SupportHandled {
			p.log.Error("unsupported format change", logger.Fields(logger.FieldMimeType, p.format.SampleMimeType))
			return errors.UnsupportedFormat(p.format.SampleMimeType).ForTrack(p.trackIndex, p.trackID)
		}
		p.log.Debug("format changed", logger.Fields(logger.FieldMimeType, p.format.SampleMimeType))
	case PullEndOfStream:
		p.inputStreamEnded = true
	case PullSample:
		if p.sample.EndOfStream {
			p.inputStreamEnded = true
			return nil
		}
		value, err := p.parse(ctx)
		if err != nil {
			return err
		}
		p.pending = &Decoded[T]{Value: value, TimeUs: p.sample.TimeUs}
	}
	return nil
}

func (p *Pipeline[T]) parse(ctx context.Context) (T, error) {
	ctx, span := observability.StartParse(ctx, p.tracer, p.sample.TimeUs, len(p.sample.Data), p.format.SampleMimeType)
	defer span.End()

	value, err := p.parser.Parse(p.sample.Data)
	if err != nil {
		observability.SetSpanError(span, err)
		p.metrics.RecordParseFailure(ctx, p.trackID)
		p.log.WithContext(ctx).Error("sample parse failed", logger.ErrorFields("parse", err), logger.Fields(
			logger.FieldTimeUs, p.sample.TimeUs,
			logger.FieldSize, len(p.sample.Data),
		))
		return value, errors.ParseFailed(err).
			ForTrack(p.trackIndex, p.trackID).
			WithDetail(errors.DetailTimeUs, p.sample.TimeUs)
	}

	p.metrics.RecordParsed(ctx, p.trackID)
	if p.log.DebugEnabled() {
		p.log.WithContext(ctx).Debug("sample parsed", logger.Fields(
			logger.FieldTimeUs, p.sample.TimeUs,
			logger.FieldSize, len(p.sample.Data),
			logger.FieldDigest, codec.Digest(p.sample.Data),
		))
	}
	return value, nil
}

func (p *Pipeline[T]) dispatch(ctx context.Context, positionUs int64) error {
	item := p.pending
	p.pending = nil
	lag := positionUs - item.TimeUs

	if p.handler == nil {
		p.consumer.OnMetadata(item.Value)
		p.metrics.RecordDispatch(ctx, p.trackID, observability.DispatchDirect, lag)
		return nil
	}

	if err := p.handler.Send(item.Value); err != nil {
		p.log.Error("hand-off failed", logger.ErrorFields("dispatch", err), logger.Fields(logger.FieldTimeUs, item.TimeUs))
		return errors.DispatchFailed(err).
			ForTrack(p.trackIndex, p.trackID).
			WithDetail(errors.DetailTimeUs, item.TimeUs)
	}
	p.metrics.RecordDispatch(ctx, p.trackID, observability.DispatchLooper, lag)
	if p.log.DebugEnabled() {
		p.log.Debug("handed off", logger.Fields(
			logger.FieldTimeUs, item.TimeUs,
			logger.FieldPositionUs, positionUs,
			logger.FieldGeneration, p.handler.Generation(),
		))
	}
	return nil
}
