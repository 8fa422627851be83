package cluster

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/replication"
)

// NNGVoteTransport sends each vote request on a fresh REQ socket
type NNGVoteTransport struct {
	scheme  string
	factory replication.SocketFactory
}

// NewNNGVoteTransport creates a vote transport dialing scheme://addr
func NewNNGVoteTransport(scheme string, factory replication.SocketFactory) *NNGVoteTransport {
	if factory == nil {
		factory = replication.NewNNGSocketFactory()
	}
	return &NNGVoteTransport{scheme: scheme, factory: factory}
}

// RequestVote sends req to addr and waits up to timeout for the answer
func (t *NNGVoteTransport) RequestVote(addr string, req VoteRequest, timeout time.Duration) (VoteResponse, error) {
	var resp VoteResponse

	sock, err := t.factory.NewReqSocket()
	if err != nil {
		return resp, fmt.Errorf("create vote socket: %w", err)
	}
	defer sock.Close()

	if err := sock.SetSendDeadline(timeout); err != nil {
		return resp, err
	}
	if err := sock.SetRecvDeadline(timeout); err != nil {
		return resp, err
	}

	endpoint := replication.Endpoint(t.scheme, addr)
	if err := sock.Dial(endpoint); err != nil {
		return resp, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	req.MessageType = MessageVoteRequest
	data, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}
	if err := sock.Send(data); err != nil {
		return resp, fmt.Errorf("send vote request: %w", err)
	}

	reply, err := sock.Recv()
	if err != nil {
		return resp, fmt.Errorf("receive vote response: %w", err)
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return resp, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if resp.MessageType != MessageVoteResponse {
		return resp, fmt.Errorf("%w: type %q", ErrMalformedMessage, resp.MessageType)
	}
	return resp, nil
}

// VoteServer answers vote requests on a REP socket
type VoteServer struct {
	handler func(VoteRequest) VoteResponse
	factory replication.SocketFactory
	sock    replication.ListenSocket
	mu      sync.Mutex
	wg      sync.WaitGroup
	logger  logging.Logger
}

// NewVoteServer creates a server that answers with handler, usually
// Elector.HandleVoteRequest
func NewVoteServer(handler func(VoteRequest) VoteResponse, factory replication.SocketFactory, logger logging.Logger) *VoteServer {
	if factory == nil {
		factory = replication.NewNNGSocketFactory()
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &VoteServer{
		handler: handler,
		factory: factory,
		logger:  logger.With(logging.Component("vote_server")),
	}
}

// Start listens at url and serves requests in the background
func (s *VoteServer) Start(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock != nil {
		return ErrVoteServerStarted
	}

	sock, err := s.factory.NewRepSocket()
	if err != nil {
		return fmt.Errorf("create vote server socket: %w", err)
	}
	if err := sock.Listen(url); err != nil {
		sock.Close()
		return fmt.Errorf("listen %s: %w", url, err)
	}

	s.sock = sock
	s.wg.Add(1)
	go s.serve(sock)
	s.logger.Info("vote server listening", logging.Addr(url))
	return nil
}

// Stop closes the socket and waits for the serve loop
func (s *VoteServer) Stop() error {
	s.mu.Lock()
	sock := s.sock
	s.sock = nil
	s.mu.Unlock()

	if sock == nil {
		return nil
	}
	err := sock.Close()
	s.wg.Wait()
	return err
}

func (s *VoteServer) serve(sock replication.Socket) {
	defer s.wg.Done()

	for {
		data, err := sock.Recv()
		if err != nil {
			if replication.IsClosed(err) {
				return
			}
			if !replication.IsTimeout(err) {
				s.logger.Debug("vote request receive failed", logging.Error(err))
			}
			continue
		}

		var req VoteRequest
		if err := json.Unmarshal(data, &req); err != nil || req.MessageType != MessageVoteRequest {
			s.logger.Debug("dropping malformed vote request", logging.Int("bytes", len(data)))
			continue
		}

		reply, err := json.Marshal(s.handler(req))
		if err != nil {
			s.logger.Error("encode vote response failed", logging.Error(err))
			continue
		}
		if err := sock.Send(reply); err != nil && !replication.IsClosed(err) {
			s.logger.Debug("vote response not sent", logging.Int("candidate", req.CandidateID), logging.Error(err))
		}
	}
}
