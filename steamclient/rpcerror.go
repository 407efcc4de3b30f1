package steamclient

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by callServiceMethod when the call's deadline
// elapses before a matching response arrives.
var ErrTimeout = errors.New("steamclient: rpc timeout")

// ResultError reports a unified RPC call that the server answered but
// rejected, carrying the method name and the response's EResult so
// callers can branch on specific failure codes (e.g. EResultTryAnotherCM).
type ResultError struct {
	Method  string
	EResult int32
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("service method %s: eresult=%d", e.Method, e.EResult)
}
