package pushes

import "fmt"

// FinalStatus derives the terminal status from per-recipient outcomes.
func FinalStatus(success, fail int) Status {
	switch {
	case fail == 0 && success > 0:
		return StatusSent
	case success == 0:
		return StatusFailed
	default:
		return StatusSentWithErrors
	}
}

func failureSummary(fail int) string {
	return fmt.Sprintf("%d deliveries failed", fail)
}
