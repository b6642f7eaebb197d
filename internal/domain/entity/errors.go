package entity

// ErrorKind classifies workbench state errors. Raw parse or storage errors
// never cross the persistence/recovery boundary; they are converted into one
// of these kinds at the function that caught them.
type ErrorKind string

const (
	// ErrorKindStorage means a durable write failed (quota, availability).
	// Retry is safe.
	ErrorKindStorage ErrorKind = "storage"
	// ErrorKindCorruption means a stored record could not be parsed.
	// Not recoverable by retry; triggers backup then default fallback.
	ErrorKindCorruption ErrorKind = "corruption"
	// ErrorKindVersion means the stored schema's major version differs and
	// migration could not produce a compatible structure.
	ErrorKindVersion ErrorKind = "version"
)

// StateError is the error surface of persistence and recovery.
type StateError struct {
	Kind        ErrorKind
	Message     string
	Recoverable bool
	Err         error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StateError) Unwrap() error { return e.Err }

// NewStorageError wraps a failed durable write. Recoverable: retrying is safe.
func NewStorageError(message string, err error) *StateError {
	return &StateError{Kind: ErrorKindStorage, Message: message, Recoverable: true, Err: err}
}

// NewCorruptionError wraps an unparseable stored record.
func NewCorruptionError(message string, err error) *StateError {
	return &StateError{Kind: ErrorKindCorruption, Message: message, Recoverable: false, Err: err}
}

// NewVersionError wraps an incompatible schema version.
func NewVersionError(message string, err error) *StateError {
	return &StateError{Kind: ErrorKindVersion, Message: message, Recoverable: false, Err: err}
}
