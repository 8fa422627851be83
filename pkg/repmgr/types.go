package repmgr

import (
	"fmt"
	"strings"
)

// InvalidEID is the master ID recorded while no master is known.
const InvalidEID = -1

// Operation is the work the coordinator performs on its next round
type Operation int

const (
	// OpNone means nothing is pending
	OpNone Operation = iota
	// OpElection runs an election through the vote primitive
	OpElection
	// OpRepStart (re)starts replication in the client role
	OpRepStart
)

// String returns the string representation of an Operation
func (o Operation) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpElection:
		return "election"
	case OpRepStart:
		return "rep_start"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// InitPolicy decides how a site behaves before it has ever seen a master
type InitPolicy int

const (
	// PolicyFullElection requires a unanimous election while no master has been found
	PolicyFullElection InitPolicy = iota
	// PolicyClient never tries for mastership until some master has been found
	PolicyClient
)

// String returns the string representation of an InitPolicy
func (p InitPolicy) String() string {
	switch p {
	case PolicyFullElection:
		return "full_election"
	case PolicyClient:
		return "client"
	default:
		return "unknown"
	}
}

// ParseInitPolicy converts a configuration string to an InitPolicy
func ParseInitPolicy(s string) (InitPolicy, error) {
	switch strings.ToLower(s) {
	case "full_election", "election", "":
		return PolicyFullElection, nil
	case "client", "client_only":
		return PolicyClient, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidInitPolicy, s)
	}
}

// Role is the replication role requested from the transport
type Role int

const (
	// RoleClient follows the master
	RoleClient Role = iota
	// RoleMaster accepts writes and feeds the clients
	RoleMaster
)

// String returns the string representation of a Role
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleMaster:
		return "master"
	default:
		return "unknown"
	}
}

// EventType identifies a group event delivered to listeners
type EventType int

const (
	// EventClient is sent after this site starts replication as a client
	EventClient EventType = iota
	// EventMaster is sent after this site becomes master
	EventMaster
	// EventNewMaster is sent when another site is learned to be master
	EventNewMaster
	// EventCoordinatorFailed is sent when the coordinator task dies on an error
	EventCoordinatorFailed
)

// String returns the string representation of an EventType
func (e EventType) String() string {
	switch e {
	case EventClient:
		return "client"
	case EventMaster:
		return "master"
	case EventNewMaster:
		return "new_master"
	case EventCoordinatorFailed:
		return "coordinator_failed"
	default:
		return "unknown"
	}
}

// Event describes a role change or coordinator failure
type Event struct {
	Type       EventType
	MasterID   int    // valid for EventMaster and EventNewMaster
	Generation uint64 // valid for EventMaster
	Err        error  // valid for EventCoordinatorFailed
}
