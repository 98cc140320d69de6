// Package audit delivers authorization events to a sink off the request path.
//
// [Dispatcher] owns one goroutine and a bounded buffer. When the buffer is full
// events are dropped and counted, or the caller blocks if DropIfFull is false.
// Fault events skip the buffer and reach the sink on the caller's goroutine.
// [Event] carries the decision outcome: operation, caller id, current role and a
// stable error code.
//
// Sinks: [NoOpSink], [ChannelSink] (tests), [JSONWriterSink] (one JSON object
// per line) and [SlogSink] (denials and faults at WARN).
//
// The Engine decides which events to emit; this package never filters them.
package audit
