package preflight

import (
	"log/slog"

	"notesmith/internal/deps"
	"notesmith/internal/logging"
)

// DependencyResults converts binary checks into preflight results. Optional
// binaries that are missing still pass, with the gap noted in Detail.
func DependencyResults(statuses []deps.Status) []Result {
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available}
		switch {
		case status.Available:
			result.Detail = status.Summary()
		case status.Optional:
			result.Passed = true
			result.Detail = "optional: " + status.Detail
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// LogResults writes one line per check, warning on failures.
func LogResults(logger *slog.Logger, results []Result) {
	if logger == nil {
		return
	}
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run notesmith status for the full report"),
			logging.String(logging.FieldImpact, "jobs needing this dependency will fail"),
		)
	}
}
