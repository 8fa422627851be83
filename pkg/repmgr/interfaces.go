package repmgr

import "github.com/valyala/bytebufferpool"

// Elector runs one election among the group's sites.
// It returns the chosen master's site ID, or ErrUnavailable when no quorum formed.
type Elector interface {
	Elect(nsites, nvotes int) (winner int, err error)
}

// SiteCounter reports how many sites take part in an election, this one included
type SiteCounter interface {
	SiteCount() int
}

// Transport (re)starts replication in the given role at the given address.
// Implementations must copy addr if they keep it; the buffer is reused after the call.
type Transport interface {
	StartRole(addr []byte, role Role) error
}

// AddressProvider builds this site's externally reachable address.
// The caller owns the returned buffer and hands it back with bytebufferpool.Put.
type AddressProvider interface {
	PrepareAddress() (*bytebufferpool.ByteBuffer, error)
}

// GenerationStore persists the next leadership generation
type GenerationStore interface {
	StashGeneration() (uint64, error)
}

// Collaborators bundles everything a Group drives but does not implement
type Collaborators struct {
	Elector     Elector
	Sites       SiteCounter
	Transport   Transport
	Addresses   AddressProvider
	Generations GenerationStore
}

func (c Collaborators) validate() error {
	if c.Elector == nil || c.Sites == nil || c.Transport == nil ||
		c.Addresses == nil || c.Generations == nil {
		return ErrMissingCollaborator
	}
	return nil
}
