// Package atlive mirrors tracker hits to a debugging console over Server-Sent Events.
//
// Attach it with Config.LiveTagging; the console subscribes to the server's Handler and
// receives one "hit" event per built or stored hit. Delivery is best effort: when no console is
// connected, hits are only kept in a short replay history.
package atlive
