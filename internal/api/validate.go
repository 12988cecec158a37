package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"meteoplan/internal/model"
)

var errInvalidRequest = errors.New("invalid request")

// Per-request overrides are admin-only.
var errOverridesAdminOnly = errors.New("parameter overrides require the admin role")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validatePlanRequest(req *model.PlanRequest) error {
	return describe(validate.Struct(req))
}

func validateSearchParams(p *model.SearchParams) error {
	return describe(validate.Struct(p))
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(msgs, "; "))
}

// monthParam reads ?month= as 1..12.
func monthParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return 0, fmt.Errorf("%w: month is required", errInvalidRequest)
	}
	m, err := strconv.Atoi(v)
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("%w: month must be 1..12, got %q", errInvalidRequest, v)
	}
	return m, nil
}
