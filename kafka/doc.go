// Package kafka reads metadata samples from a Kafka topic.
//
// Each message carries one sample: the value is the payload and the
// presentation time travels in a header (time_us by default). A message with
// the end-of-stream header set ends the track. Source implements
// stream.Iterator so it can feed a pipeline through stream.FromIterator:
//
//	src, err := kafka.NewSource(cfg, log)
//	if err != nil {
//		return err
//	}
//	in := stream.FromIterator(ctx, src, cfg.Buffer, stream.WithFormat(format))
//	defer in.Close()
//
// TLS and SASL (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512) are configured through
// Config.
package kafka
