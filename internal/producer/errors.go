package producer

import "fmt"

// UnknownProducerError reports a producer id without a registration.
type UnknownProducerError struct {
	ID string
}

func (e *UnknownProducerError) Error() string {
	return fmt.Sprintf("unknown data producer %s", e.ID)
}

// MissingInputMapperError reports a required input without a mapping.
type MissingInputMapperError struct {
	Producer string
	Input    string
	Type     string
	Field    string
}

func (e *MissingInputMapperError) Error() string {
	return fmt.Sprintf("missing input data mapper for %s on field %s on type %s", e.Input, e.Field, e.Type)
}

// InvalidInputMapperError reports an input mapped to something that cannot
// be invoked.
type InvalidInputMapperError struct {
	Producer string
	Input    string
	Type     string
	Field    string
}

func (e *InvalidInputMapperError) Error() string {
	return fmt.Sprintf("invalid input mapper for %s on field %s on type %s: input mappers need to be invocable", e.Input, e.Field, e.Type)
}

// MissingInputDataError reports a required input whose mapping produced
// null.
type MissingInputDataError struct {
	Producer string
	Input    string
	Type     string
	Field    string
}

func (e *MissingInputDataError) Error() string {
	return fmt.Sprintf("missing input data for %s on field %s on type %s", e.Input, e.Field, e.Type)
}
