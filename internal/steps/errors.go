package steps

import "fmt"

// SpecificationError reports invalid plan or step configuration. It is
// raised before any execution starts and is always fatal to the run.
type SpecificationError struct {
	Message string
	Err     error
}

func (e *SpecificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SpecificationError) Unwrap() error {
	return e.Err
}

// NewSpecificationError creates a SpecificationError with a formatted message.
func NewSpecificationError(format string, args ...interface{}) *SpecificationError {
	return &SpecificationError{Message: fmt.Sprintf(format, args...)}
}

// ExecuteError reports that test execution could not proceed at all, for
// example because no guest is available. The run stays resumable.
type ExecuteError struct {
	Message string
}

func (e *ExecuteError) Error() string {
	return e.Message
}

// NewExecuteError creates an ExecuteError with a formatted message.
func NewExecuteError(format string, args ...interface{}) *ExecuteError {
	return &ExecuteError{Message: fmt.Sprintf(format, args...)}
}

// FileError reports a failed read or write under the run workdir. Workdir
// I/O failures are fatal; partially written state must not be masked.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error on '%s': %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps an I/O failure on the given path.
func NewFileError(path string, err error) *FileError {
	return &FileError{Path: path, Err: err}
}
