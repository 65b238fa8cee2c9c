// Package prometheus renders dashauth engine metrics in the Prometheus text
// exposition format.
//
// Counters are grouped into labelled families such as
// dashauth_logins_total{outcome="success"}. Login latency is the
// dashauth_login_latency_seconds histogram, and audit delivery is
// dashauth_audit_events_total{status="delivered"|"dropped"}. The exporter
// does not touch any global registry: mount Handler wherever metrics are
// scraped.
package prometheus
