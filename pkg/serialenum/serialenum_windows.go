//go:build windows

package serialenum

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procQueryDosDevW = modkernel32.NewProc("QueryDosDeviceW")
)

func queryDosDevice(deviceName string) bool {
	namePtr, err := syscall.UTF16PtrFromString(deviceName)
	if err != nil {
		return false
	}
	target := make([]uint16, 64)
	ret, _, _ := procQueryDosDevW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(&target[0])),
		uintptr(len(target)),
	)
	return ret != 0
}

func list() []string {
	var ports []string
	for i := 1; i <= 256; i++ {
		name := fmt.Sprintf("COM%d", i)
		if queryDosDevice(name) {
			ports = append(ports, name)
		}
	}
	return ports
}
