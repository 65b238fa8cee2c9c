// Package audit relays security events from the engine to a [Sink] through a
// bounded asynchronous [Dispatcher].
//
// The package does not decide which events exist; the engine does. Sinks
// provided here write to a channel, to a JSON-lines writer, or to a
// *slog.Logger.
package audit
