/*
Package observability provides monitoring for the Fixpath wizard.

It turns domain.LifecycleHooks into Prometheus counters and structured log
records, so the same hook set serves dashboards and audit logs.
*/
package observability
