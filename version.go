package mman

import "fmt"

// Version constants
const (
	// Major is the major version number
	Major = 0

	// Minor is the minor version number
	Minor = 2

	// Patch is the patch version number
	Patch = 0
)

// Version returns the version string of mman.
func Version() string {
	return fmt.Sprintf("mman %d.%d.%d (page size %d)", Major, Minor, Patch, PageSize)
}
