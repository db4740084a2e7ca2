package utils

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SplitCommand breaks a plan command line into the executable and its arguments
func SplitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return fields[0], fields[1:], nil
}

// MergeEnviron returns the current environment with extra appended in key order
func MergeEnviron(extra map[string]string) []string {
	environ := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		environ = append(environ, k+"="+extra[k])
	}
	return environ
}
