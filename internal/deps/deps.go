package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// Requirement defines an external binary notesmith shells out to. When
// VersionArgs is set, an available binary is invoked with them and the first
// line of output is recorded as its version.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	VersionArgs []string
}

// Status reports the availability of a dependency. Path is the resolved
// executable when Available.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// Summary is the short human form used by preflight and status output.
func (s Status) Summary() string {
	if !s.Available {
		return s.Detail
	}
	if s.Version == "" {
		return s.Path
	}
	return fmt.Sprintf("%s (%s)", s.Path, s.Version)
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// CheckBinaries resolves each requirement on PATH and, for those that carry
// VersionArgs, probes the installed version. A failed probe leaves the
// binary available with an empty Version.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
			if len(req.VersionArgs) > 0 {
				status.Version = probeVersion(ctx, path, req.VersionArgs)
			}
		}
		results = append(results, status)
	}
	return results
}

func probeVersion(ctx context.Context, path string, args []string) string {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line)
}
