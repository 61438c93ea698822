package hooks

import "fmt"

// PostInstallError is returned when a post-install step fails. The keg
// stays installed.
type PostInstallError struct {
	Formula string
	Step    string
	Output  string
	Err     error
}

func (e *PostInstallError) Error() string {
	return fmt.Sprintf("post-install of %s failed at %s: %v", e.Formula, e.Step, e.Err)
}

func (e *PostInstallError) Unwrap() error {
	return e.Err
}

// AssertionError is returned by the smoke test for the first check that
// did not hold.
type AssertionError struct {
	Formula   string
	Assertion string
	Expected  string
	Actual    string
	Err       error
}

func (e *AssertionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("test of %s failed at %s: %v", e.Formula, e.Assertion, e.Err)
	}
	return fmt.Sprintf("test of %s failed at %s: expected %q, got %q", e.Formula, e.Assertion, e.Expected, e.Actual)
}

func (e *AssertionError) Unwrap() error {
	return e.Err
}
