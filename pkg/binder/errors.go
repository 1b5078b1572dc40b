package binder

import "errors"

var (
	ErrBind                 = errors.New("binder.bind_failed")
	ErrBinderNotApplicable  = errors.New("binder.not_applicable")
	ErrUnsupportedMediaType = errors.New("binder.unsupported_media_type")
	ErrMissingContentType   = errors.New("binder.missing_content_type")
	ErrFailedToParseJSON    = errors.New("binder.invalid_json")
	ErrFailedToParsePath    = errors.New("binder.invalid_path")
)

func bindError(kind error, detail string) error {
	if detail == "" {
		return errors.Join(ErrBind, kind)
	}
	return errors.Join(ErrBind, kind, errors.New(detail))
}
