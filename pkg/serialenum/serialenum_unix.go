//go:build !windows

package serialenum

import (
	"os"
	"strings"
)

var devicePrefixes = []string{"ttyS", "ttyUSB", "ttyACM", "ttyAMA", "rfcomm"}

func list() []string {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		for _, prefix := range devicePrefixes {
			if strings.HasPrefix(name, prefix) {
				ports = append(ports, "/dev/"+name)
				break
			}
		}
	}
	return ports
}
