package redis

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/resilience"
)

// Envelope is the JSON document published for each delivered value.
type Envelope[T any] struct {
	TrackID     string    `json:"track_id"`
	Seq         uint64    `json:"seq"`
	Value       T         `json:"value"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher publishes delivered values of one track. Failures are logged
// and counted and never reach the pipeline. After BreakerFailures
// consecutive failures publishing is skipped until BreakerCooldown has
// passed, so a dead server does not hold up delivery for PublishTimeout on
// every value.
type Publisher[T any] struct {
	client  *Client
	trackID string
	channel string
	latest  *TypedStore[Envelope[T]]
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
	breaker *resilience.CircuitBreaker
	now     func() time.Time

	seq       atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

var _ metadata.Consumer[any] = (*Publisher[any])(nil)

// NewPublisher creates a publisher for trackID using the channel, latest
// key prefix and timeouts of the client configuration.
func NewPublisher[T any](client *Client, trackID string) *Publisher[T] {
	cfg := client.Config()
	p := &Publisher[T]{
		client:  client,
		trackID: trackID,
		channel: cfg.Channel,
		ttl:     duration(cfg.LatestTTL),
		timeout: duration(cfg.PublishTimeout),
		log:     client.log.WithComponent("redis.publisher").WithFields(logger.Fields(logger.FieldTrackID, trackID)),
		now:     time.Now,
	}
	p.breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:        "redis.publisher",
		MaxFailures: cfg.BreakerFailures,
		Cooldown:    duration(cfg.BreakerCooldown),
		OnStateChange: func(_ string, from, to resilience.State) {
			p.log.Warn("publish circuit "+to.String(), logger.Fields("from", from.String()))
		},
	})
	if cfg.LatestPrefix != "" {
		p.latest = NewTypedStore[Envelope[T]](client, cfg.LatestPrefix)
	}
	return p
}

// OnMetadata implements metadata.Consumer.
func (p *Publisher[T]) OnMetadata(value T) {
	env := Envelope[T]{
		TrackID:     p.trackID,
		Seq:         p.seq.Add(1),
		Value:       value,
		PublishedAt: p.now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.fail("marshal", err, env.Seq)
		return
	}

	err = p.breaker.Execute(func() error { return p.publish(data) })
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		p.failed.Add(1)
		p.log.Debug("metadata publish skipped", logger.Fields("seq", env.Seq, "circuit", "open"))
		return
	}
	if err != nil {
		p.fail("publish", err, env.Seq)
		return
	}

	p.published.Add(1)
	if p.log.DebugEnabled() {
		p.log.Debug("metadata published", logger.Fields(
			logger.FieldChannel, p.channel,
			"seq", env.Seq,
			logger.FieldSize, len(data),
		))
	}
}

func (p *Publisher[T]) publish(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if p.latest != nil {
		return p.client.PublishAndSet(ctx, p.channel, p.latest.Key(p.trackID), data, p.ttl)
	}
	_, err := p.client.Publish(ctx, p.channel, data)
	return err
}

func (p *Publisher[T]) fail(op string, err error, seq uint64) {
	p.failed.Add(1)
	p.log.Error("metadata publish failed", logger.ErrorFields(op, err), logger.Fields(
		logger.FieldChannel, p.channel,
		"seq", seq,
	))
}

// Latest returns the last value stored for the track, or nil when none is
// stored or the latest key is disabled.
func (p *Publisher[T]) Latest(ctx context.Context) (*Envelope[T], error) {
	if p.latest == nil {
		return nil, nil
	}
	return p.latest.Load(ctx, p.trackID)
}

// Forget removes the stored latest value, as after a seek.
func (p *Publisher[T]) Forget(ctx context.Context) error {
	if p.latest == nil {
		return nil
	}
	return p.latest.Delete(ctx, p.trackID)
}

// Published returns the number of values published.
func (p *Publisher[T]) Published() uint64 { return p.published.Load() }

// Failed returns the number of values that could not be published,
// including those skipped while the circuit was open.
func (p *Publisher[T]) Failed() uint64 { return p.failed.Load() }

// Circuit returns the state of the publish circuit breaker.
func (p *Publisher[T]) Circuit() resilience.State { return p.breaker.State() }
