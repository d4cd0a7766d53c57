package folder

// ValidationKind classifies a rejected folder mutation.
type ValidationKind int

const (
	SelfParent ValidationKind = iota
	CircularReference
	DepthExceeded
)

// ValidationError is a recoverable validation result. Callers map it to a
// 400-class response without unwinding.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
