// Package main provides the entry point for the gifmaker server.
//
// gifmaker turns a short video into an animated GIF. The browser uploads
// a video, the server runs it through FFmpeg inside a private workspace,
// and the finished GIF is handed back through a one-shot download link.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from GOMEMLIMIT or MEMORY_LIMIT
//  2. Configuration Loading: Reads environment variables and prepares the workspace
//  3. Engine Initialization: Checks the FFmpeg binary and sweeps stale workspaces
//  4. Component Initialization:
//     - Download Tickets: Holds finished GIFs until they are fetched
//     - Memory Monitor: Samples host memory before each conversion
//     - Conversion Pipeline: Runs one conversion at a time
//     - Metrics Collector: Updates Prometheus gauges
//  5. HTTP Server Setup: Registers routes and middleware, then serves
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM and disposes the engine
//
// The engine itself loads lazily on the first conversion and is disposed
// after a failure, so the next conversion always starts from a fresh
// workspace.
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default 127.0.0.1:8080):
//     - Static UI from STATIC_DIR
//     - /api/session, /api/select, /api/convert
//     - /api/download/{token} and /api/preview/{token}
//     - /health, /healthz, /livez, /readyz, /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - BIND_ADDR: Listen address for both servers (default: 127.0.0.1)
//   - PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - FFMPEG_PATH: FFmpeg executable (default: ffmpeg on PATH)
//   - WORKSPACE_DIR: Parent of engine workspaces (default: $TMPDIR/gifmaker)
//   - STATIC_DIR: Web UI directory (default: ./static)
//   - MAX_UPLOAD_SIZE: Largest accepted video, e.g. 512MiB
//   - DOWNLOAD_TTL: How long an unclaimed GIF is kept (default: 10m)
//   - MEMORY_CHECK_INTERVAL: Host memory sampling interval (default: 5s)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Include those requests in access logs
//   - GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO: Go heap limit
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests (30s timeout)
//  2. Cancel the running conversion and dispose the engine
//  3. Release unclaimed downloads
//  4. Stop the memory monitor and metrics collector
//  5. Shutdown metrics server (if running)
//
// # Related Packages
//
//   - [gifmaker/internal/pipeline]: Conversion state machine
//   - [gifmaker/internal/engine]: Engine handle and lifecycle
//   - [gifmaker/internal/ffmpeg]: FFmpeg process engine
//   - [gifmaker/internal/download]: Download dispatchers
//   - [gifmaker/internal/handlers]: HTTP request handlers
//   - [gifmaker/internal/startup]: Configuration and initialization
//
// The command-line converter lives in cmd/gifconvert.
package main
