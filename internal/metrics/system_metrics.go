package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MetricsManager is a singleton that owns the gateway's Prometheus registry
type MetricsManager struct {
	systemCPUUsage    *prometheus.GaugeVec
	systemMemoryUsage *prometheus.GaugeVec

	goGoroutines prometheus.Gauge
	goHeapAlloc  prometheus.Gauge
	goHeapSys    prometheus.Gauge
	goGCPauseNs  prometheus.Histogram

	processRSS       prometheus.Gauge
	processOpenFDs   prometheus.Gauge
	processStartTime prometheus.Gauge

	registry *prometheus.Registry

	initialized bool
	mu          sync.RWMutex
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton instance of MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{
			registry: prometheus.NewRegistry(),
		}
	})
	return instance
}

// Handler serves every metric registered with the gateway registry
func Handler() http.Handler {
	return promhttp.HandlerFor(GetInstance().registry, promhttp.HandlerOpts{})
}

func enabled(envVar string) bool {
	return os.Getenv(envVar) == "true"
}

// initializeSystemMetrics registers the system gauges once (thread-safe)
func (mm *MetricsManager) initializeSystemMetrics() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.initialized {
		return
	}

	mm.systemCPUUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "Current CPU usage percentage",
		},
		[]string{"core"},
	)

	mm.systemMemoryUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_bytes",
			Help: "Current memory usage in bytes",
		},
		[]string{"type"},
	)

	mm.goGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_goroutines",
		Help: "Number of goroutines that currently exist",
	})
	mm.goHeapAlloc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_heap_alloc_bytes",
		Help: "Heap memory usage in bytes",
	})
	mm.goHeapSys = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_heap_sys_bytes",
		Help: "Heap memory reserved in bytes",
	})
	mm.goGCPauseNs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docgateway_gc_pause_nanoseconds",
		Help:    "GC pause time in nanoseconds",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 20),
	})

	mm.processRSS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_process_resident_memory_bytes",
		Help: "Resident memory of the gateway process in bytes",
	})
	mm.processOpenFDs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_process_open_fds",
		Help: "Number of open file descriptors",
	})
	mm.processStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docgateway_process_start_time_seconds",
		Help: "Start time of the process since unix epoch in seconds",
	})

	mm.registry.MustRegister(
		mm.systemCPUUsage,
		mm.systemMemoryUsage,
		mm.goGoroutines,
		mm.goHeapAlloc,
		mm.goHeapSys,
		mm.goGCPauseNs,
		mm.processRSS,
		mm.processOpenFDs,
		mm.processStartTime,
	)

	mm.initialized = true
}

// StartSystemMetrics collects system metrics every interval until ctx is done.
// It does nothing unless ENABLE_SYSTEM_METRICS=true.
func StartSystemMetrics(ctx context.Context, interval time.Duration) {
	if !enabled("ENABLE_SYSTEM_METRICS") {
		return
	}

	mm := GetInstance()
	mm.initializeSystemMetrics()

	proc, _ := process.NewProcess(int32(os.Getpid()))
	if proc != nil {
		if created, err := proc.CreateTime(); err == nil {
			mm.processStartTime.Set(float64(created) / 1000)
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mm.collectSystemMetrics(proc)
				mm.collectGoRuntimeMetrics()
			}
		}
	}()
}

func (mm *MetricsManager) collectSystemMetrics(proc *process.Process) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	if cpuPercentages, err := cpu.Percent(0, true); err == nil {
		for i, percentage := range cpuPercentages {
			mm.systemCPUUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(percentage)
		}
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		mm.systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		mm.systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		mm.systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
	}

	if proc == nil {
		return
	}
	if info, err := proc.MemoryInfo(); err == nil {
		mm.processRSS.Set(float64(info.RSS))
	}
	if fds, err := proc.NumFDs(); err == nil {
		mm.processOpenFDs.Set(float64(fds))
	}
}

func (mm *MetricsManager) collectGoRuntimeMetrics() {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.goGoroutines.Set(float64(runtime.NumGoroutine()))
	mm.goHeapAlloc.Set(float64(m.HeapAlloc))
	mm.goHeapSys.Set(float64(m.HeapSys))
	mm.goGCPauseNs.Observe(float64(m.PauseNs[(m.NumGC+255)%256]))
}
