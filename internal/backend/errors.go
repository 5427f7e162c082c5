package backend

import (
	"errors"
	"fmt"
)

// User-facing failure messages.
const (
	MsgGenericFailure = "Não foi possível processar sua contribuição. Tente novamente."
	MsgConnectivity   = "Erro de conexão. Verifique sua internet e tente novamente."
)

// Failure kinds. A *SubmitError matches exactly one of them with errors.Is.
var (
	ErrEncode    = errors.New("encode request")
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode response")
	ErrRejected  = errors.New("submission rejected")
)

// SubmitError describes a failed submission. Message is safe to show to the
// user; Cause is diagnostic detail for logs.
type SubmitError struct {
	Kind       error
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmitError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

func (e *SubmitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// UserMessage returns the message to display for err. Errors that are not
// a *SubmitError get the generic failure message.
func UserMessage(err error) string {
	var se *SubmitError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return MsgGenericFailure
}
