package wrappers

import "github.com/samuelfneumann/racegym"

// Unwrapper is implemented by every wrapper in this package and
// exposes the Environment it wraps.
type Unwrapper interface {
	Unwrap() racegym.Environment
}

// baseEnv walks a wrapper chain down to the innermost Environment.
func baseEnv(env racegym.Environment) racegym.Environment {
	for {
		u, ok := env.(Unwrapper)
		if !ok {
			return env
		}
		env = u.Unwrap()
	}
}
