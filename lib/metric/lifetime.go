// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import "fmt"

// Lifetime is the retention scope of a stored metric value. Each
// lifetime is kept in its own storage namespace. The numeric values
// are persisted and must not change.
type Lifetime uint8

const (
	// Ping values are cleared each time the ping carrying them is
	// assembled.
	Ping Lifetime = 0

	// Application values live as long as the application does and
	// are not cleared by ping assembly.
	Application Lifetime = 1

	// User values persist until the profile is explicitly reset.
	User Lifetime = 2
)

// Lifetimes returns every lifetime in storage order.
func Lifetimes() []Lifetime {
	return []Lifetime{Ping, Application, User}
}

// String returns the lowercase name used in configuration and tooling.
func (lifetime Lifetime) String() string {
	switch lifetime {
	case Ping:
		return "ping"
	case Application:
		return "application"
	case User:
		return "user"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(lifetime))
	}
}

// Valid reports whether lifetime is one of the defined constants.
func (lifetime Lifetime) Valid() bool {
	return lifetime <= User
}

// ParseLifetime parses a lifetime from its String form.
func ParseLifetime(name string) (Lifetime, error) {
	switch name {
	case "ping":
		return Ping, nil
	case "application":
		return Application, nil
	case "user":
		return User, nil
	default:
		return 0, fmt.Errorf("metric: unknown lifetime %q", name)
	}
}
