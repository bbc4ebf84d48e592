// Package pipeline turns a job request into rendered, archived and uploaded
// short videos.
//
// A Factory produces one video through a fixed sequence of stages. Optional
// Enhancers hook into three phases of that sequence; their failures are
// logged and skipped, except for an explicit rejection which makes the
// Factory regenerate the content. A Runner queues jobs on a bounded worker
// pool, persists their state and fans progress events out to subscribers.
package pipeline
