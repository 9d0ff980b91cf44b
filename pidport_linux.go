//go:build linux

package svcrun

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// tcpListenState is the st column value for LISTEN in /proc/net/tcp.
const tcpListenState = "0A"

// portFromPID returns the first listening TCP port bound by the process, or
// 0 if the process does not exist or holds no listening socket. It matches
// the socket inodes in /proc/<pid>/fd against the kernel's TCP tables.
func portFromPID(pid int) int {
	inodes := socketInodes(pid)
	if len(inodes) == 0 {
		return 0
	}

	for _, table := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		if port := listeningPort(table, inodes); port != 0 {
			return port
		}
	}
	return 0
}

// socketInodes collects the socket inode numbers held open by pid.
func socketInodes(pid int) map[string]struct{} {
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return nil
	}

	inodes := make(map[string]struct{})
	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, entry.Name()))
		if err != nil {
			continue
		}
		// Socket links look like "socket:[12345]".
		if rest, ok := strings.CutPrefix(target, "socket:["); ok {
			inodes[strings.TrimSuffix(rest, "]")] = struct{}{}
		}
	}
	return inodes
}

// listeningPort scans one kernel TCP table for a LISTEN socket whose inode
// belongs to the target process and returns its local port.
func listeningPort(table string, inodes map[string]struct{}) int {
	file, err := os.Open(table)
	if err != nil {
		return 0
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Scan() // header line

	for scanner.Scan() {
		// sl local_address rem_address st ... inode ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 || fields[3] != tcpListenState {
			continue
		}
		if _, ok := inodes[fields[9]]; !ok {
			continue
		}
		_, portHex, ok := strings.Cut(fields[1], ":")
		if !ok {
			continue
		}
		port, err := strconv.ParseInt(portHex, 16, 32)
		if err != nil {
			continue
		}
		return int(port)
	}
	return 0
}
