package step

import "fmt"

// Reported when a step exits with a code outside its success set.
//
// Recipe code may match on the type to recover and continue; left
// unhandled it ends the recipe with status failure.
type Failure struct {
	Step    string
	Retcode int
}

func (e *Failure) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", e.Step, e.Retcode)
}

// Reported when an infra step fails or a step could not be started.
//
// A distinct type from [Failure] so recipe code can discriminate; left
// unhandled it ends the recipe with status infra_failure.
type InfraFailure struct {
	Step    string
	Retcode int
	Reason  string
}

func (e *InfraFailure) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("infra failure in step %q: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("infra failure in step %q: exit code %d", e.Step, e.Retcode)
}

// Reported when the runner hit an internal failure or an output
// placeholder could not parse its data. Ends the recipe with status
// exception unless recovered.
type Exception struct {
	Step   string
	Reason string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("exception in step %q: %s", e.Step, e.Reason)
}
