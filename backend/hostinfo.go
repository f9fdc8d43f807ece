package backend

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// hostDeviceType reports whether the current host looks like a
// physical machine or a virtual machine. PlatformVideo.Enumerate logs
// it at debug level; it does not appear in DeviceInfo.Description.
// Capture inside a VM commonly lacks camera passthrough or presents an
// emulated device.
func hostDeviceType() string {
	switch runtime.GOOS {
	case "linux":
		if out, err := exec.Command("cat", "/sys/class/dmi/id/product_name").Output(); err == nil {
			name := strings.ToLower(strings.TrimSpace(string(out)))
			if isKnownHypervisorString(name) {
				return "vm"
			}
		}
		if out, err := exec.Command("cat", "/sys/class/dmi/id/sys_vendor").Output(); err == nil {
			vendor := strings.ToLower(strings.TrimSpace(string(out)))
			if isKnownHypervisorString(vendor) {
				return "vm"
			}
		}
	case "darwin":
		if out, err := exec.Command("system_profiler", "SPHardwareDataType").Output(); err == nil {
			if isKnownHypervisorString(strings.ToLower(string(out))) {
				return "vm"
			}
		}
	}
	return "physical"
}

func isKnownHypervisorString(s string) bool {
	for _, marker := range []string{"vmware", "virtualbox", "innotek", "qemu", "kvm", "parallels", "xen"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// hostLabel returns a short human-readable identifier for the current
// host, falling back to the hostname when no richer identity is
// available.
func hostLabel() string {
	if runtime.GOOS == "darwin" {
		if out, err := exec.Command("system_profiler", "SPHardwareDataType").Output(); err == nil {
			for _, line := range strings.Split(string(out), "\n") {
				if strings.Contains(line, "Chip:") || strings.Contains(line, "Model Name:") {
					if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
						return strings.TrimSpace(parts[1])
					}
				}
			}
		}
	}
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return "unknown-host"
}
