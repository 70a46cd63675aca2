package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is a (major, minor, patch) triple as carried in
// "initialize" handshakes.
type ProtocolVersion struct {
	Major, Minor, Patch int
}

// ParseProtocolVersion parses "<m>.<n>.<p>".
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ProtocolVersion{}, fmt.Errorf("malformed protocol version %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ProtocolVersion{}, fmt.Errorf("malformed protocol version %q", s)
		}
		nums[i] = n
	}
	return ProtocolVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String formats back to "<m>.<n>.<p>". Round-trips with ParseProtocolVersion
// for any value produced by it.
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CompatibleWith reports whether v is compatible with other: same major,
// v's minor at least other's minor.
func (v ProtocolVersion) CompatibleWith(other ProtocolVersion) bool {
	return v.Major == other.Major && v.Minor >= other.Minor
}
