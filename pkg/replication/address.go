package replication

import (
	"net"
	"strconv"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/valyala/bytebufferpool"

	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// AddressProvider builds this site's replication address. An empty host is
// replaced with the host's private IP; a zero port leaves the host bare, as
// inproc names need.
type AddressProvider struct {
	host string
	port int
}

// NewAddressProvider creates a provider for host and port
func NewAddressProvider(host string, port int) *AddressProvider {
	return &AddressProvider{host: host, port: port}
}

// PrepareAddress writes the address into a pooled buffer owned by the caller
func (p *AddressProvider) PrepareAddress() (*bytebufferpool.ByteBuffer, error) {
	host := p.host
	if host == "" {
		ip, err := sockaddr.GetPrivateIP()
		if err != nil {
			return nil, err
		}
		if ip == "" {
			return nil, ErrNoPrivateAddress
		}
		host = ip
	}

	buf := bytebufferpool.Get()
	if p.port == 0 {
		buf.WriteString(host)
	} else {
		buf.WriteString(net.JoinHostPort(host, strconv.Itoa(p.port)))
	}
	return buf, nil
}

// Ensure AddressProvider serves the coordinator
var _ repmgr.AddressProvider = (*AddressProvider)(nil)
