package pipeline

import "fmt"

// SynthesisError reports a narration failure. Narration is a precondition
// for everything downstream, so this is fatal: no retry, the run aborts.
type SynthesisError struct {
	SceneNumber int
	Err         error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("narration for scene %d: %v", e.SceneNumber, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// GenerationError reports a clip failure that exhausted its retry. It is
// absorbed at scene granularity: the scene is dropped and the run continues.
type GenerationError struct {
	SceneNumber int
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("clip for scene %d: %v", e.SceneNumber, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResourceError reports missing artifacts on a compose-only resume. Fatal
// for that invocation.
type ResourceError struct {
	Dir string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resume from %s: %v", e.Dir, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
