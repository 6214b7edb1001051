package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var errValidation = errors.New("invalid request")

type rowsQuery struct {
	Offset int `query:"offset" validate:"gte=0"`
	Limit  int `query:"limit" validate:"gte=1,lte=1000"`
}

type histogramQuery struct {
	Column string `query:"column" validate:"max=256"`
	Bins   int    `query:"bins" validate:"gte=0"`
}

type scatterQuery struct {
	X     string `query:"x" validate:"max=256"`
	Y     string `query:"y" validate:"max=256"`
	Color string `query:"color" validate:"max=256"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindQuery fills the tagged fields of dst from the URL query and validates them.
// dst must be a pointer to a struct whose fields are strings or ints.
func (s *Server) bindQuery(r *http.Request, dst interface{}) error {
	q := r.URL.Query()
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("query")
		if key == "" || !q.Has(key) {
			continue
		}
		raw := strings.TrimSpace(q.Get(key))
		switch f.Type.Kind() {
		case reflect.String:
			rv.Field(i).SetString(raw)
		case reflect.Int:
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%w: %s must be an integer", errValidation, key)
			}
			rv.Field(i).SetInt(int64(n))
		}
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", errValidation, fe.Field(), describeTag(fe))
		}
		return fmt.Errorf("%w: %v", errValidation, err)
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
