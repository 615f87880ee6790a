package telemetry

import (
	"fmt"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig controls optional Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled        bool
	ServiceVersion string
	Endpoint       string
}

var (
	profiler         *pyroscope.Profiler
	profilingEnabled bool
)

// defaultProfileTypes covers CPU and heap, the two profiles worth the
// always-on overhead for a storage-proxy workload.
var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileInuseObjects,
}

// InitProfiling starts the Pyroscope profiler when cfg.Enabled, returning a
// shutdown func that stops it.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		profilingEnabled = false
		return func() error { return nil }, nil
	}

	profilingEnabled = true
	profiler, err = pyroscope.Start(pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            map[string]string{"version": cfg.ServiceVersion},
		ProfileTypes:    defaultProfileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}

	shutdown = func() error {
		if profiler != nil {
			return profiler.Stop()
		}
		return nil
	}
	return shutdown, nil
}

func IsProfilingEnabled() bool { return profilingEnabled }
