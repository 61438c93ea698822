package node

import "fmt"

// Status is the install state of one formula within a run.
type Status int32

const (
	StatusRequested Status = iota
	StatusResolved
	StatusFetched
	StatusBuilt
	StatusInstalled
	StatusPostInstalled
	// StatusUpToDate means the installed keg already matches the plan.
	StatusUpToDate
	StatusFetchFailed
	StatusBuildFailed
	// StatusPostInstallFailed leaves the keg installed.
	StatusPostInstallFailed
	// StatusSkipped means a dependency failed or the run was cancelled.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusRequested:         "requested",
	StatusResolved:          "resolved",
	StatusFetched:           "fetched",
	StatusBuilt:             "built",
	StatusInstalled:         "installed",
	StatusPostInstalled:     "post-installed",
	StatusUpToDate:          "up-to-date",
	StatusFetchFailed:       "fetch-failed",
	StatusBuildFailed:       "build-failed",
	StatusPostInstallFailed: "post-install-failed",
	StatusSkipped:           "skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

var transitions = map[Status][]Status{
	StatusRequested: {StatusResolved, StatusSkipped},
	StatusResolved:  {StatusFetched, StatusFetchFailed, StatusUpToDate, StatusSkipped},
	StatusFetched:   {StatusBuilt, StatusBuildFailed, StatusSkipped},
	StatusBuilt:     {StatusInstalled, StatusBuildFailed},
	StatusInstalled: {StatusPostInstalled, StatusPostInstallFailed},
}

// CanTransitionTo reports whether a formula in state s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Failed reports whether s is one of the failure states.
func (s Status) Failed() bool {
	switch s {
	case StatusFetchFailed, StatusBuildFailed, StatusPostInstallFailed:
		return true
	}
	return false
}

// Satisfied reports whether dependents may build against a formula in
// state s: its keg is installed.
func (s Status) Satisfied() bool {
	switch s {
	case StatusInstalled, StatusPostInstalled, StatusPostInstallFailed, StatusUpToDate:
		return true
	}
	return false
}

// TransitionError is returned for a status change the state machine does
// not allow.
type TransitionError struct {
	Name     string
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("formula '%s': illegal status transition %s -> %s", e.Name, e.From, e.To)
}
