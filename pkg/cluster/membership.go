// Package cluster provides the site table and the vote primitive for a
// replication group.
//
// This package handles:
//   - Static site membership and the local site's replication progress
//   - Term-based vote requests and the responder side of a vote
//   - The mangos REQ/REP transport that carries vote messages
package cluster
