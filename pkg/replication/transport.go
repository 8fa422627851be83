package replication

import (
	"io"
	"strings"
	"time"
)

// Socket represents a messaging socket that can send and receive messages.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SubscribeSocket is a SUB socket that can subscribe to topics.
// Dials complete in the background so unreachable peers do not fail the dial.
type SubscribeSocket interface {
	DialSocket
	Subscribe(topic []byte) error
}

// SocketFactory creates sockets for the messaging patterns the group uses.
type SocketFactory interface {
	// Master announcements
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)

	// Votes
	NewReqSocket() (DialSocket, error)
	NewRepSocket() (ListenSocket, error)
}

// Endpoint joins a scheme and a host:port (or inproc name) into a socket URL.
// Addresses that already carry a scheme are returned unchanged.
func Endpoint(scheme, addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return scheme + "://" + addr
}
