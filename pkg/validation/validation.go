package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"travel-admin-api/internal/service"

	"github.com/go-playground/validator/v10"
)

// List paging defaults
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

var validate = validator.New()

// ParseID parses a laptop request id taken from a path segment. Only positive
// integers are accepted.
func ParseID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("id is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id must be an integer: %s", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive: %d", id)
	}

	return id, nil
}

// ParseListQuery reads destination_id, limit and offset from values and
// validates the result. Missing limit and offset take their defaults.
func ParseListQuery(values url.Values) (service.ListQuery, []string) {
	q := service.ListQuery{Limit: DefaultListLimit}
	var problems []string

	parse := func(name string, set func(int64)) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be an integer", name))
			return
		}
		set(n)
	}

	parse("destination_id", func(n int64) { q.DestinationID = &n })
	parse("limit", func(n int64) { q.Limit = int(n) })
	parse("offset", func(n int64) { q.Offset = int(n) })

	if len(problems) > 0 {
		return q, problems
	}

	return q, ValidateListQuery(q)
}

// ValidateListQuery checks the paging bounds on q.
func ValidateListQuery(q service.ListQuery) []string {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	name := map[string]string{
		"DestinationID": "destination_id",
		"Limit":         "limit",
		"Offset":        "offset",
	}[fe.Field()]
	if name == "" {
		name = fe.Field()
	}

	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
