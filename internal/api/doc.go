// Package api hosts the job HTTP server, middleware, and REST handlers.
// Routes:
//   - POST /v1/crawls queues a crawl run and returns its job ID.
//   - GET /v1/crawls/{job_id} reports job status and the run summary.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
