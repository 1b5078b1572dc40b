package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path fills fields tagged `path:"name"` using extractor, typically
// chi.URLParam. Untagged fields use their lowercased name; `path:"-"` skips.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return bindError(ErrFailedToParsePath, "nil extractor")
		}
		rv, err := structValue(v)
		if err != nil {
			return bindError(ErrFailedToParsePath, err.Error())
		}

		rt := rv.Type()
		for i := range rv.NumField() {
			field, sf := rv.Field(i), rt.Field(i)
			if !field.CanSet() {
				continue
			}
			name, skip := parseFieldTag(sf, "path")
			if skip {
				continue
			}
			value := extractor(r, name)
			if value == "" {
				continue
			}
			if err := setFieldValue(field, sf.Type, value); err != nil {
				return bindError(ErrFailedToParsePath, fmt.Sprintf("field %s: %v", sf.Name, err))
			}
		}
		return nil
	}
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("target must be a non-nil pointer")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target must be a pointer to struct")
	}
	return rv, nil
}
