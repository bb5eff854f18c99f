// Package memory keeps gifmaker's memory use in check on hosts where the
// real consumer is not the Go process but the FFmpeg child it spawns.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes
//     precedence over everything else.
//
//   - MEMORY_LIMIT: Container memory limit, in bytes or as a size such as
//     "2GiB". GOMEMLIMIT is derived from it.
//
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap, between 0.0 and
//     1.0. Default is 0.5 because uploaded videos and finished GIFs are
//     small next to what FFmpeg's palette generation needs.
//
// # Host monitoring
//
// [Monitor] samples host memory with gopsutil and implements the
// pipeline's memory guard. Conversions are never refused on pressure;
// the pipeline logs a warning and counts them, since running out of
// memory is the one failure mode users actually hit.
//
//	monitor := memory.NewMonitor(memory.DefaultConfig(), nil)
//	monitor.Start()
//	defer monitor.Stop()
//
//	p := pipeline.New(handle, dispatcher, pipeline.WithMemoryGuard(monitor))
//
// Pressure has hysteresis: it is raised at HighWaterMark and cleared only
// below RecoverWaterMark.
package memory
