package observability

import (
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"signage-service/pkg/config"
	"signage-service/pkg/logger"
)

// StartProfiling attaches the process to a pyroscope server when profiling is
// enabled; it is a no-op otherwise.
func StartProfiling(appName string, cfg config.ProfilingConfig) {
	if !cfg.Enabled || cfg.ServerURL == "" {
		return
	}

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	hostname, _ := os.Hostname()
	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.ServerURL,
		Tags:            map[string]string{"hostname": hostname},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileBlockCount,
		},
	})
	if err != nil {
		logger.Warnf("pyroscope start failed server=%s error=%v", cfg.ServerURL, err)
		return
	}
	logger.Infof("continuous profiling enabled server=%s app=%s", cfg.ServerURL, appName)
}
