package cutout

import (
	"fmt"
	"strings"
)

// IsRemoteTarget reports whether a target string names a host:dir remote.
// A target is remote when it contains a colon that is not a Windows
// drive-letter pattern (X:\) and is at least 3 characters long. The
// heuristic cannot distinguish every odd local path containing a colon;
// such paths will be misrouted, matching the documented contract.
func IsRemoteTarget(target string) bool {
	if len(target) < 3 {
		return false
	}
	if target[1:3] == `:\` {
		return false
	}
	return strings.Contains(target, ":")
}

// SplitRemoteTarget splits a host:dir target into its parts.
func SplitRemoteTarget(target string) (host, dir string, err error) {
	host, dir, found := strings.Cut(target, ":")
	if !found || host == "" || dir == "" {
		return "", "", fmt.Errorf("invalid remote target '%s'", target)
	}
	return host, dir, nil
}

// TargetPath joins a target (local dir or remote dir) with a filename using
// forward slashes, the form shared by remote shells and display output.
func TargetPath(target, filename string) string {
	return strings.TrimRight(target, "/") + "/" + filename
}
