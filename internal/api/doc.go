// Package api implements the HTTP surface of the service: the chat
// endpoint, health and readiness probes, the Prometheus metrics
// endpoint, and the request security stack (trusted hosts, CORS,
// per-IP rate limiting, API key).
//
// Probe and metrics routes bypass the security stack so orchestrators
// and scrapers never need credentials.
package api
