// Package api holds the request and response bodies of the ViralShorts HTTP
// API.
//
// # API Overview
//
//   - POST /api/v1/jobs            queue a generation job
//   - GET  /api/v1/jobs            list jobs (?status=, ?limit=)
//   - GET  /api/v1/jobs/{id}       job detail with its videos
//   - GET  /api/v1/jobs/{id}/events job progress over a WebSocket
//   - GET  /api/v1/videos          list videos (?job_id=, ?status=, ?type=, ?limit=)
//   - POST /api/v1/evaluate        AI and heuristic scoring of questions or hooks
//   - GET  /api/v1/patterns        learned and proven viral patterns
//   - GET  /health, /ready, /version
//
// Metrics are served on a separate port at /metrics.
//
// # Authentication
//
// When API keys are configured, requests must carry X-API-Key. When a JWT
// secret is configured, Authorization: Bearer <HS256 token> is accepted too.
package api
