/*
Package session implements the cross-session state registry and the per-session gate.

The Registry maps session IDs to their durable state and is safe for concurrent use by
many sessions. The Manager guarantees that no two runs or updates of one session execute
at the same time, optionally coordinating replicas through a distributed locker.
*/
package session
