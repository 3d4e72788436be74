// Package server relays typing signals between participants. The server
// keeps no typing state: every start signal is forwarded as-is and the
// indicator expires on the receiving client after a fixed window, so a stop
// signal lost to an abrupt disconnect can never wedge the indicator.
package server

import "time"

// typingExpiry is the window after which clients clear a typing indicator
// locally. The built-in chat page bakes this value into its script.
const typingExpiry = 2 * time.Second

// TypingNotifier derives the relay event for a typing signal. It performs
// no deduplication or coalescing; rapid repeated signals are all forwarded.
type TypingNotifier struct{}

// Relay builds the typing event fanned out to every connection except the
// originator. It returns errUnknownConnection when the sender has not
// completed the join handshake, since a typing signal without a display
// name means nothing to peers.
func (TypingNotifier) Relay(senderName string) ([]byte, error) {
	if senderName == "" {
		return nil, errUnknownConnection
	}
	return encodeTyping(senderName)
}
