/*
Package session implements session management and persistence orchestration.

A Manager restores a wizard from a ports.WizardStore for every operation and
saves it back under a per-session lock, optionally backed by a distributed
lock so several replicas can serve the same sessions. Draft results that
arrive after an operation completed are written back the same way.
*/
package session
