// ABOUTME: Version constants for the resonance binary
// ABOUTME: Reported by -version, the startup log and the telemetry resource
package version

const (
	Version      = "0.3.0"
	Product      = "Resonance"
	Manufacturer = "Resonance Audio"
)

// String returns the product and version for banners and logs
func String() string {
	return Product + " " + Version
}
