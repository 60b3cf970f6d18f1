package util

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname string
	NumCPU   int
	OS       string
	Arch     string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname: hostname,
		NumCPU:   runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// AvailableMemoryBytes returns the available memory in bytes.
// On Linux, MemAvailable from /proc/meminfo is preferred because it accounts
// for reclaimable caches; sysinfo(2) free memory is the fallback.
// Returns 0 if memory cannot be determined.
func AvailableMemoryBytes() uint64 {
	if mem := memAvailableProcfs(); mem > 0 {
		return mem
	}
	return availableMemorySysinfo()
}

func memAvailableProcfs() uint64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemAvailable:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				kb, err := strconv.ParseUint(fields[1], 10, 64)
				if err == nil {
					return kb * 1024
				}
			}
		}
	}
	return 0
}

// MaxWorkersForMemory calculates the maximum safe number of concurrent
// measurement workers based on available memory and the estimated memory one
// in-flight frame pair needs. memFraction is the fraction of available memory
// to use (e.g. 0.5 for 50%). Returns at least 1.
func MaxWorkersForMemory(perWorkerBytes uint64, memFraction float64) int {
	if perWorkerBytes == 0 {
		return 1
	}
	available := AvailableMemoryBytes()
	if available == 0 {
		return 1 // Can't determine memory, be conservative
	}

	usable := uint64(float64(available) * memFraction)
	if usable < perWorkerBytes {
		return 1
	}

	workers := int(usable / perWorkerBytes)
	return max(workers, 1)
}

// LogicalCores returns the number of logical CPU cores.
func LogicalCores() int {
	return runtime.NumCPU()
}
