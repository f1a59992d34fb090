// Package serialenum lists the serial device nodes available on the host.
// It is a pluggable capability: the host facade consumes List without
// caring how a given platform discovers ports.
package serialenum

// List returns the serial ports visible to this process, platform-specific
// and best-effort — an empty slice, never an error, if none are found or
// discovery is unsupported.
func List() []string {
	return list()
}
