package server

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// MaxCommands bounds a single command batch.
const MaxCommands = 1000

var validate = validator.New()

// commandsRequest is the body of POST /dialogues/{name}/commands.
type commandsRequest struct {
	Commands []dialogue.Command `json:"commands" validate:"required,min=1,max=1000,dive"`
}

// commandsResponse reports the applied batch. Node IDs in Results are only
// meaningful within the batch; Created maps each node created by the batch
// to the stable index ID ("n3") it is stored under.
type commandsResponse struct {
	Name    string            `json:"name"`
	Results []dialogue.Result `json:"results"`
	Created map[string]string `json:"created,omitempty"`
}

// validateStruct checks s against its validate tags.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	field = strings.ToLower(field)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
