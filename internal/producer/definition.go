// Package producer runs named data producers as resolver steps.
//
// A producer declares the inputs it consumes. When it is used in a
// resolver chain every input is bound to a step computing its value; the
// bindings are checked each time the producer is invoked.
package producer

import (
	"errors"
	"fmt"
)

// Input declares one value a producer consumes.
type Input struct {
	Name     string
	DataType string
	Label    string
	Required bool
	Multiple bool
}

// Definition describes a producer.
type Definition struct {
	ID          string
	Name        string
	Description string
	// Produces is the data type of the result.
	Produces string
	// Consumes lists the inputs in the order they are evaluated.
	Consumes []Input
}

// Validate checks that the definition can be registered.
func (d Definition) Validate() error {
	if d.ID == "" {
		return errors.New("producer definition is missing an id")
	}
	seen := make(map[string]bool, len(d.Consumes))
	for _, in := range d.Consumes {
		if in.Name == "" {
			return fmt.Errorf("producer %s declares an input without a name", d.ID)
		}
		if seen[in.Name] {
			return fmt.Errorf("producer %s declares input %s twice", d.ID, in.Name)
		}
		seen[in.Name] = true
	}
	return nil
}

// Required returns an Input that must be mapped and must not be null.
func Required(name, dataType string) Input {
	return Input{Name: name, DataType: dataType, Required: true}
}

// Optional returns an Input that may be unmapped or null.
func Optional(name, dataType string) Input {
	return Input{Name: name, DataType: dataType}
}

// Multi marks the input as accepting a list of values.
func (in Input) Multi() Input {
	in.Multiple = true
	return in
}
