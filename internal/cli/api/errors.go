package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConflict соответствует HTTP 409: конфликт параллельной записи.
// Такие ошибки не показываются пользователю, их обрабатывает вызывающий код.
var ErrConflict = errors.New("conflicting concurrent write")

// StatusError - сервер ответил не-2xx статусом. Такие ответы не повторяются.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// Is lets errors.Is(err, ErrConflict) match a 409 response.
func (e *StatusError) Is(target error) bool {
	return target == ErrConflict && e.Code == http.StatusConflict
}
