// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - BIND_ADDR: Listen address (default: 127.0.0.1)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - WORKSPACE_DIR: Parent of the engine's scratch workspaces (default: $TMPDIR/gifmaker)
//   - FFMPEG_PATH: FFmpeg executable name or path (default: ffmpeg)
//   - STATIC_DIR: Web UI directory (default: ./static)
//   - MAX_UPLOAD_SIZE: Largest accepted video, bytes or a size like 1GiB (default: 512MiB)
//   - DOWNLOAD_TTL: How long an unclaimed GIF is kept (default: 10m)
//   - MEMORY_CHECK_INTERVAL: Host memory sampling interval (default: 5s)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// Invalid durations, sizes and booleans fall back to their defaults with
// a warning.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
//
// # Lifecycle Logging
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	ffmpegOK := startup.LogEngineInit(ctx, config.FFmpegPath, config.WorkspaceDir)
//	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)
//	startup.LogServerStarted(startup.ServerConfig{Addr: config.Addr(), ...})
//	...
//	startup.LogShutdownInitiated("SIGTERM")
//	startup.LogShutdownComplete()
package startup
