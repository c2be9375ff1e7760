// Package server composes framing, codecs and the scheduler into the
// tunnel endpoint bound to one channel.
//
// Outbound: frame -> payload codec -> text-safe encode -> sendMessage
// through the scheduler. Inbound: the listen loop decodes every channel
// post, routes packets addressed to the server into the handler
// callback, deletes consumed or undecodable posts, and leaves posts for
// unrouted destinations (broadcast, peers) in place.
package server
