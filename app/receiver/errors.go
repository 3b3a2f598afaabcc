package receiver

import "fmt"

// RenderError indicates a template referenced a variable the item does not carry
type RenderError struct {
	Template string
	Variable string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template %q references undefined variable %q", e.Template, e.Variable)
}

// DeliveryError indicates the notification POST failed or was rejected
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to deliver notification to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("notification to %s rejected with status %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
