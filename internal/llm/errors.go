package llm

import "fmt"

// GenerationError indicates the text-generation capability failed or
// returned output that does not match the expected shape. Raw holds the
// offending response when one was received.
type GenerationError struct {
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
