package pathguard

import "net/http"

// Kind classifies a path resolution failure.
type Kind int

const (
	// KindInvalid covers structurally broken input that is neither a
	// traversal attempt nor a filesystem condition.
	KindInvalid Kind = iota
	// KindAbsolutePath rejects absolute input paths outright.
	KindAbsolutePath
	// KindNullByte rejects input containing a NUL byte.
	KindNullByte
	// KindForbidden marks input that resolved outside every jail base.
	KindForbidden
	// KindNotFound marks input whose target does not exist under any base.
	KindNotFound
	// KindNoBaseDir means no configured base directory exists at all.
	KindNoBaseDir
)

// PathError is a typed resolution failure with an HTTP-equivalent status.
// The resolver never logs; callers map the status at the transport boundary.
type PathError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *PathError) Error() string {
	return e.Message
}

func errInvalid() *PathError {
	return &PathError{Kind: KindInvalid, Status: http.StatusBadRequest, Message: "invalid path"}
}

func errRequired() *PathError {
	return &PathError{Kind: KindInvalid, Status: http.StatusBadRequest, Message: "path is required"}
}

func errAbsolute() *PathError {
	return &PathError{Kind: KindAbsolutePath, Status: http.StatusBadRequest, Message: "absolute paths are not allowed"}
}

func errNullByte() *PathError {
	return &PathError{Kind: KindNullByte, Status: http.StatusBadRequest, Message: "invalid path"}
}

func errForbidden() *PathError {
	return &PathError{Kind: KindForbidden, Status: http.StatusForbidden, Message: "forbidden: access outside allowed directory"}
}

func errForbiddenUser() *PathError {
	return &PathError{Kind: KindForbidden, Status: http.StatusForbidden, Message: "forbidden: you can only access your own sites"}
}

func errNotFound() *PathError {
	return &PathError{Kind: KindNotFound, Status: http.StatusNotFound, Message: "path not found"}
}

func errUserDirNotFound() *PathError {
	return &PathError{Kind: KindNotFound, Status: http.StatusNotFound, Message: "user directory not found"}
}

func errNoBaseDir() *PathError {
	return &PathError{Kind: KindNoBaseDir, Status: http.StatusInternalServerError, Message: "configured base directory not found"}
}
