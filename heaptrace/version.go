package heaptrace

// Version information for the heap tracer.
const (
	// Version is the current version of the tracer library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides build-time information about the tracer.
type Info struct {
	// Version is the library version string.
	Version string

	// Algorithm names the traversal scheme.
	Algorithm string
}

// GetInfo returns information about the tracer.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Algorithm: "parallel mark with work stealing",
	}
}
