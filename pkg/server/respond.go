package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/notify"
)

// maxBody bounds request bodies.
const maxBody = 32 << 20

// errorBody is the JSON shape of a failed request.
type errorBody struct {
	Code          errors.Code      `json:"code"`
	Detail        string           `json:"detail"`
	Notifications []notify.Message `json:"notifications,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error, notes []notify.Message) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Code: code, Detail: errors.UserMessage(err), Notifications: notes})
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.New(errors.ErrCodeInvalidInput, "request body is empty")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	if err := s.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "validate request")
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", strings.Join(msgs, "; "))
}
