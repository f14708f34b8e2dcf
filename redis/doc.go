// Package redis fans decoded metadata out through Redis.
//
// Publisher is a metadata.Consumer that publishes every delivered value as a
// JSON envelope on a pub/sub channel and keeps the latest value of each
// track under a key, so late subscribers can catch up. Client wraps
// go-redis with pooling configuration and logging, and Component manages its
// lifecycle in a component.Registry.
package redis
