package xsysinfo

import (
	"github.com/mudler/memory"
	"github.com/mudler/xlog"
)

// SystemRAMInfo contains system RAM usage information
type SystemRAMInfo struct {
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Available    uint64  `json:"available"`
	UsagePercent float64 `json:"usage_percent"`
}

// GetSystemRAMInfo returns the current system RAM usage
func GetSystemRAMInfo() *SystemRAMInfo {
	total := memory.TotalMemory()
	available := min(memory.AvailableMemory(), total)
	used := total - available

	usagePercent := 0.0
	if total > 0 {
		usagePercent = float64(used) / float64(total) * 100
	}
	xlog.Debug("System RAM Info", "total", total, "used", used, "available", available, "usage_percent", usagePercent)
	return &SystemRAMInfo{
		Total:        total,
		Used:         used,
		Available:    available,
		UsagePercent: usagePercent,
	}
}
