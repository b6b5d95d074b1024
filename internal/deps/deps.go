// Package deps reports on external executables the browser adapter needs.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency transcripter relies on. When
// Alternatives is set, any one of the commands satisfies it.
type Requirement struct {
	Name         string
	Alternatives []string
	Description  string
	Optional     bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		var tried []string
		for _, candidate := range req.Alternatives {
			cmd := strings.TrimSpace(candidate)
			if cmd == "" {
				continue
			}
			tried = append(tried, cmd)
			if path, err := exec.LookPath(cmd); err == nil {
				status.Command = path
				status.Available = true
				break
			}
		}
		switch {
		case status.Available:
		case len(tried) == 0:
			status.Detail = "command not configured"
		default:
			status.Detail = fmt.Sprintf("none of %s found", strings.Join(tried, ", "))
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
