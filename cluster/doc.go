// Package cluster provides the shared key/value map replicas cooperate
// through, per-trigger leader election on top of it, and the process-wide
// requestor identifier.
package cluster
