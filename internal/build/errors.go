package build

import "fmt"

// BuildStageError is returned when an install stage fails. The staging
// directory has been discarded and the install tree is untouched.
type BuildStageError struct {
	Formula  string
	Stage    string
	ExitCode int
	Output   string
	Err      error
}

func (e *BuildStageError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("build of %s failed in stage '%s' with exit code %d", e.Formula, e.Stage, e.ExitCode)
	}
	return fmt.Sprintf("build of %s failed in stage '%s': %v", e.Formula, e.Stage, e.Err)
}

func (e *BuildStageError) Unwrap() error {
	return e.Err
}
