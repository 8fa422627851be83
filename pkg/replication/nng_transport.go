package replication

import (
	"errors"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// nngSocket wraps a mangos.Socket to implement our Socket interface.
type nngSocket struct {
	sock mangos.Socket
}

func (s *nngSocket) Send(data []byte) error {
	return s.sock.Send(data)
}

func (s *nngSocket) Recv() ([]byte, error) {
	return s.sock.Recv()
}

func (s *nngSocket) Close() error {
	return s.sock.Close()
}

func (s *nngSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *nngSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *nngSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

func (s *nngSocket) Dial(addr string) error {
	return s.sock.Dial(addr)
}

// nngSubSocket adds subscription capability.
type nngSubSocket struct {
	nngSocket
}

func (s *nngSubSocket) Subscribe(topic []byte) error {
	return s.sock.SetOption(mangos.OptionSubscribe, topic)
}

// NNGSocketFactory creates NNG/mangos sockets.
type NNGSocketFactory struct{}

// NewNNGSocketFactory creates a new NNG socket factory.
func NewNNGSocketFactory() *NNGSocketFactory {
	return &NNGSocketFactory{}
}

func (f *NNGSocketFactory) NewPubSocket() (ListenSocket, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngSocket{sock: sock}, nil
}

func (f *NNGSocketFactory) NewSubSocket() (SubscribeSocket, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionDialAsynch, true); err != nil {
		sock.Close()
		return nil, err
	}
	return &nngSubSocket{nngSocket{sock: sock}}, nil
}

func (f *NNGSocketFactory) NewReqSocket() (DialSocket, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngSocket{sock: sock}, nil
}

func (f *NNGSocketFactory) NewRepSocket() (ListenSocket, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngSocket{sock: sock}, nil
}

// IsClosed reports whether err means the socket was closed under a blocked call
func IsClosed(err error) bool {
	return errors.Is(err, mangos.ErrClosed)
}

// IsTimeout reports whether err is a send or receive deadline expiring
func IsTimeout(err error) bool {
	return errors.Is(err, mangos.ErrRecvTimeout) || errors.Is(err, mangos.ErrSendTimeout)
}

// Ensure NNGSocketFactory implements SocketFactory
var _ SocketFactory = (*NNGSocketFactory)(nil)
