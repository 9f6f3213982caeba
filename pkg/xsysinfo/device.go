package xsysinfo

import "runtime"

// Accelerator devices understood by the inference backends.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceROCm = "rocm"
	DeviceMPS  = "mps"
)

// AcceleratorDevice picks the device to run inference on: the requested one
// if it is not "auto", otherwise the best accelerator found on this host.
func AcceleratorDevice(requested string) string {
	if requested != "" && requested != DeviceAuto {
		return requested
	}
	return ResolveDevice(runtime.GOOS, runtime.GOARCH, GPUVendors())
}

// ResolveDevice maps the host description to a device name.
func ResolveDevice(goos, goarch string, vendors []string) string {
	for _, v := range vendors {
		if v == VendorNVIDIA {
			return DeviceCUDA
		}
	}
	for _, v := range vendors {
		if v == VendorAMD {
			return DeviceROCm
		}
	}
	if goos == "darwin" && goarch == "arm64" {
		return DeviceMPS
	}
	return DeviceCPU
}
