// Package component defines the lifecycle contract for long-lived pieces of a
// metatrack host, such as the loopers that consumers run on.
//
// Components are started in registration order and stopped in reverse, so a
// looper registered before the pipelines that post to it outlives them.
package component
