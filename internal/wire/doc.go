// Package wire defines the framed packet format tunneled through the
// chat channel.
//
// Layout (little-endian, fixed 8-byte header):
//
//	marker(4) | source(2) | destination(2) | payload(rest of buffer)
//
// The payload carries no length prefix; it is everything after the
// header. The marker is verified on decode so unrelated channel chatter
// is rejected as a framing error instead of being misparsed.
package wire
