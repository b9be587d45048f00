// Package audit emits asynchronous operation events for the resource
// store. Events carry the operation kind, resource type, duration, and
// outcome; callers never block on their consumption.
package audit
