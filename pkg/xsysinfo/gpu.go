package xsysinfo

import (
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/gpu"
)

// GPU vendor constants
const (
	VendorNVIDIA  = "nvidia"
	VendorAMD     = "amd"
	VendorIntel   = "intel"
	VendorUnknown = "unknown"
)

var (
	gpuCache     []*gpu.GraphicsCard
	gpuCacheOnce sync.Once
	gpuCacheErr  error
)

func GPUs() ([]*gpu.GraphicsCard, error) {
	gpuCacheOnce.Do(func() {
		gpu, err := ghw.GPU()
		if err != nil {
			gpuCacheErr = err
			return
		}
		gpuCache = gpu.GraphicsCards
	})

	return gpuCache, gpuCacheErr
}

// GPUVendors returns the vendor of every detected graphics card.
func GPUVendors() []string {
	gpus, err := GPUs()
	if err != nil {
		return nil
	}
	vendors := []string{}
	for _, card := range gpus {
		if card == nil {
			continue
		}
		vendors = append(vendors, vendorOf(card))
	}
	return vendors
}

func HasGPU(vendor string) bool {
	gpus, err := GPUs()
	if err != nil {
		return false
	}
	if vendor == "" {
		return len(gpus) > 0
	}
	for _, card := range gpus {
		if card != nil && vendorOf(card) == vendor {
			return true
		}
	}
	return false
}

func vendorOf(card *gpu.GraphicsCard) string {
	desc := strings.ToLower(card.String())
	if card.DeviceInfo != nil && card.DeviceInfo.Vendor != nil {
		desc += " " + strings.ToLower(card.DeviceInfo.Vendor.Name)
	}
	switch {
	case strings.Contains(desc, "nvidia"):
		return VendorNVIDIA
	case strings.Contains(desc, "amd"), strings.Contains(desc, "advanced micro devices"), strings.Contains(desc, "ati "):
		return VendorAMD
	case strings.Contains(desc, "intel"):
		return VendorIntel
	}
	return VendorUnknown
}
