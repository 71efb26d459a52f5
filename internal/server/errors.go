package server

import (
	stderrors "errors"
	"net/http"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

// codeOf classifies err. Coded errors keep their code; graph edit errors map
// by sentinel; anything else is internal.
func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	switch {
	case stderrors.Is(err, dialogue.ErrNodeNotFound):
		return errors.ErrCodeNodeNotFound
	case stderrors.Is(err, dialogue.ErrSelfConnection),
		stderrors.Is(err, dialogue.ErrWrongDirection),
		stderrors.Is(err, dialogue.ErrNoInput),
		stderrors.Is(err, dialogue.ErrOutputOutOfRange),
		stderrors.Is(err, dialogue.ErrConnectorInUse):
		return errors.ErrCodeInvalidConnection
	case stderrors.Is(err, dialogue.ErrStartNotRemovable),
		stderrors.Is(err, dialogue.ErrDuplicateStart):
		return errors.ErrCodeConflict
	case stderrors.Is(err, dialogue.ErrNotOptionNode),
		stderrors.Is(err, dialogue.ErrOptionOutOfRange),
		stderrors.Is(err, dialogue.ErrUnknownKind),
		stderrors.Is(err, dialogue.ErrUnknownOp),
		stderrors.Is(err, dialogue.ErrMissingStart),
		stderrors.Is(err, dialogue.ErrDuplicateNodeID):
		return errors.ErrCodeInvalidInput
	}
	return errors.ErrCodeInternal
}

// writeError responds with err's status and JSON body. Internal errors are
// logged and their details withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := codeOf(err)
	status := errors.HTTPStatus(code)
	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", requestIDFrom(r.Context()))
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorBody{
		Code:      code,
		Message:   msg,
		RequestID: requestIDFrom(r.Context()),
	})
}
