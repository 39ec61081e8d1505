// Package encode delivers raw RGB frames to an encoder.
//
// A Sink accepts whole frames of a fixed Format. Writes block until the
// encoder has taken the bytes, so a slow encoder throttles the producer.
// A write that delivers fewer bytes than a frame returns a
// *dynamo.SinkError wrapping dynamo.ErrShortWrite; callers treat it as the
// end of the stream rather than a failure.
//
// Frames arrive with the bottom row first. The FFmpeg sink flips them with
// the encoder's vflip filter; sinks that store top-left images use FlipRows.
package encode
