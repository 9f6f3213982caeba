package xsysinfo

import (
	"slices"

	"github.com/jaypipes/ghw"
	"github.com/klauspost/cpuid/v2"
)

// CPUCapabilities returns the sorted set of CPU flags reported by the host.
func CPUCapabilities() ([]string, error) {
	cpu, err := ghw.CPU()
	if err != nil {
		return nil, err
	}

	caps := []string{}
	for _, proc := range cpu.Processors {
		caps = append(caps, proc.Capabilities...)
	}
	slices.Sort(caps)
	return slices.Compact(caps), nil
}

func CPUBrand() string {
	return cpuid.CPU.BrandName
}

func CPUPhysicalCores() int {
	if cpuid.CPU.PhysicalCores == 0 {
		return 1
	}
	return cpuid.CPU.PhysicalCores
}
