package verity

// Validate checks data against requirement and reports every observed
// difference as a *ValidationError. The requirement may be a Requirement
// value or any literal NewRequirement classifies. A nil return means the
// data satisfies the requirement. Errors raised by caller-supplied
// callables and configuration errors on the check path propagate
// unchanged; only a *ValidationError represents "did not satisfy".
func Validate(data, requirement any) error {
	res, err := NewRequirement(requirement).Check(data)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	return newValidationError(res.Description, res.Differences)
}

// Valid reports whether data satisfies requirement. The error is non-nil
// only for broken callables or configuration problems, never for an
// ordinary failed validation.
func Valid(data, requirement any) (bool, error) {
	err := Validate(data, requirement)
	if err == nil {
		return true, nil
	}
	if _, ok := AsValidationError(err); ok {
		return false, nil
	}
	return false, err
}

// CheckRequirement classifies requirement and runs it over data,
// returning the raw check result instead of an error. A nil Result means
// the data satisfies the requirement.
func CheckRequirement(data, requirement any) (*Result, error) {
	return NewRequirement(requirement).Check(data)
}
