package resolve

import "fmt"

// NotInvocableError reports a resolver, step or producer that is registered
// but cannot be invoked.
type NotInvocableError struct {
	Kind     string // "field resolver", "type resolver", "step" or "producer"
	Type     string
	Field    string
	Producer string
	Step     int
}

func (e *NotInvocableError) Error() string {
	switch e.Kind {
	case "field resolver":
		return fmt.Sprintf("field resolver for field %s on type %s is not invocable", e.Field, e.Type)
	case "type resolver":
		return fmt.Sprintf("type resolver for type %s is not invocable", e.Type)
	case "producer":
		return fmt.Sprintf("producer %s is not invocable", e.Producer)
	case "step":
		return fmt.Sprintf("composed step %d is not invocable", e.Step)
	}
	return "resolver is not invocable"
}
