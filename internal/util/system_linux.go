package util

import "golang.org/x/sys/unix"

// availableMemorySysinfo reads free memory via sysinfo(2).
// Used when /proc/meminfo is unavailable (minimal containers).
func availableMemorySysinfo() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Freeram) * uint64(info.Unit)
}
