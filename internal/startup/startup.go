package startup

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"gifmaker/internal/ffmpeg"
	"gifmaker/internal/logging"
	"gifmaker/internal/memory"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for the values LoadConfig reads.
const (
	DefaultBindAddr                  = "127.0.0.1"
	DefaultPort                      = "8080"
	DefaultMetricsPort               = "9090"
	DefaultStaticDir                 = "./static"
	DefaultMaxUploadSize       int64 = 512 << 20
	DefaultDownloadTTL               = 10 * time.Minute
	DefaultMemoryCheckInterval       = 5 * time.Second
)

// Config holds all application configuration
type Config struct {
	BindAddr            string
	Port                string
	MetricsPort         string
	MetricsEnabled      bool
	WorkspaceDir        string
	FFmpegPath          string
	StaticDir           string
	MaxUploadSize       int64
	DownloadTTL         time.Duration
	MemoryCheckInterval time.Duration
	LogStaticFiles      bool
	LogHealthChecks     bool
}

// Addr returns the application listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// MetricsAddr returns the metrics listen address.
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.BindAddr, c.MetricsPort)
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logSection("CONFIGURATION")

	config := &Config{
		BindAddr:            getEnv("BIND_ADDR", DefaultBindAddr),
		Port:                getEnv("PORT", DefaultPort),
		MetricsPort:         getEnv("METRICS_PORT", DefaultMetricsPort),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		WorkspaceDir:        getEnv("WORKSPACE_DIR", filepath.Join(os.TempDir(), "gifmaker")),
		FFmpegPath:          getEnv("FFMPEG_PATH", ffmpeg.DefaultBinary),
		StaticDir:           getEnv("STATIC_DIR", DefaultStaticDir),
		MaxUploadSize:       getEnvBytes("MAX_UPLOAD_SIZE", DefaultMaxUploadSize),
		DownloadTTL:         getEnvDuration("DOWNLOAD_TTL", DefaultDownloadTTL),
		MemoryCheckInterval: getEnvDuration("MEMORY_CHECK_INTERVAL", DefaultMemoryCheckInterval),
		LogStaticFiles:      getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", false),
	}

	logging.Info("  BIND_ADDR:             %s", config.BindAddr)
	logging.Info("  PORT:                  %s", config.Port)
	logging.Info("  METRICS_PORT:          %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", config.MetricsEnabled)
	logging.Info("  WORKSPACE_DIR:         %s", config.WorkspaceDir)
	logging.Info("  FFMPEG_PATH:           %s", config.FFmpegPath)
	logging.Info("  STATIC_DIR:            %s", config.StaticDir)
	logging.Info("  MAX_UPLOAD_SIZE:       %s", humanize.IBytes(uint64(config.MaxUploadSize)))
	logging.Info("  DOWNLOAD_TTL:          %v", config.DownloadTTL)
	logging.Info("  MEMORY_CHECK_INTERVAL: %v", config.MemoryCheckInterval)
	logging.Info("  LOG_STATIC_FILES:      %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	if ip := net.ParseIP(config.BindAddr); ip != nil && !ip.IsLoopback() {
		logging.Warn("  BIND_ADDR %s is not a loopback address; uploaded videos will be accepted from the network", config.BindAddr)
	}

	logSection("DIRECTORY SETUP")

	workspaceDir, err := filepath.Abs(config.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory path: %w", err)
	}
	config.WorkspaceDir = workspaceDir
	logging.Info("  Workspace directory (absolute): %s", workspaceDir)

	if err := ensureDirectory(workspaceDir, "workspace"); err != nil {
		return nil, fmt.Errorf("workspace directory error: %w", err)
	}

	logging.Debug("  Testing workspace directory write access...")
	if err := testWriteAccess(workspaceDir); err != nil {
		return nil, fmt.Errorf("workspace directory is not writable (required for conversions): %w", err)
	}
	logging.Info("  [OK] Workspace directory is writable")

	if info, err := os.Stat(config.StaticDir); err != nil || !info.IsDir() {
		logging.Warn("  Static directory %s not found; the web UI will not be served", config.StaticDir)
	} else {
		logging.Info("  [OK] Static directory found")
	}

	return config, nil
}

// LogEngineInit checks the FFmpeg binary and removes workspaces left
// behind by processes that did not shut down cleanly. It returns whether
// FFmpeg is available.
func LogEngineInit(ctx context.Context, binary, workspaceDir string) bool {
	logSection("ENGINE INITIALIZATION")

	removed, err := ffmpeg.SweepStale(workspaceDir)
	if err != nil {
		logging.Warn("  Failed to sweep stale workspaces: %v", err)
	}
	if removed > 0 {
		logging.Info("  Removed %d stale workspace(s)", removed)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version, err := ffmpeg.Version(ctx, binary)
	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Conversions will fail until FFmpeg is installed or FFMPEG_PATH is set")
		return false
	}
	logging.Info("  [OK] %s", version)
	logging.Info("  Engine loads lazily on the first conversion")
	return true
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	logSection("MEMORY CONFIGURATION")

	if !result.Configured {
		logging.Info("  GOMEMLIMIT:      not set (set MEMORY_LIMIT to configure)")
		return
	}

	logging.Info("  Source:          %s", result.Source)
	logging.Info("  GOMEMLIMIT:      %s", humanize.IBytes(uint64(result.GoMemLimit)))
	if result.ContainerLimit > 0 {
		logging.Info("  Container limit: %s", humanize.IBytes(uint64(result.ContainerLimit)))
		logging.Info("  Go heap share:   %.0f%% (the rest is left to FFmpeg)", result.Ratio*100)
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Routes matched by something other than a path are not listed.
			return nil
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logSection("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Addr            string
	MetricsAddr     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logSection("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://%s", config.Addr)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://%s/metrics", config.MetricsAddr)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("%s", sectionRule)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logSection("SHUTDOWN INITIATED (received " + signal + ")")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// logSection starts a titled block of the startup log.
func logSection(title string) {
	logging.Info("")
	logging.Info("%s", sectionRule)
	logging.Info("%s", title)
	logging.Info("%s", sectionRule)
}

const sectionRule = "------------------------------------------------------------"

func printBanner() {
	banner := `
------------------------------------------------------------
         _  __                   _
   __ _ (_)/ _| _ __ ___   __ _ | | __ ___  _ __
  / _' || || |_ | '_ ' _ \ / _' || |/ // _ \| '__|
 | (_| || ||  _|| | | | | | (_| ||   <|  __/| |
  \__, ||_||_|  |_| |_| |_|\__,_||_|\_\\___||_|
  |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logSection("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvBytes accepts plain byte counts and sizes such as "256MiB" or "1GB".
func getEnvBytes(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
		return n
	}
	parsed, err := humanize.ParseBytes(value)
	if err != nil || parsed == 0 || parsed > 1<<62 {
		logging.Warn("Invalid size for %s: %q, using default: %s", key, value, humanize.IBytes(uint64(defaultValue)))
		return defaultValue
	}
	return int64(parsed)
}
