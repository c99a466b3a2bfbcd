package xerrors

import "errors"

// Detailer is implemented by errors that carry structured detail beyond
// their Error() description.
type Detailer interface {
	Detail() string
}

type withDetail struct {
	err    error
	detail string
}

func (w *withDetail) Error() string     { return w.err.Error() }
func (w *withDetail) Unwrap() error     { return w.err }
func (w *withDetail) Detail() string    { return w.detail }
func (w *withDetail) IsXerrorsWrapper() {}

// WithDetail attaches detail to err without changing its description.
// An empty detail returns err unchanged.
func WithDetail(err error, detail string) error {
	if err == nil {
		return nil
	}
	if detail == "" {
		return err
	}
	return &withDetail{err: err, detail: detail}
}

// Detail returns the first non-empty detail found in err's chain.
func Detail(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if d, ok := e.(Detailer); ok {
			if s := d.Detail(); s != "" {
				return s
			}
		}
	}
	return ""
}

// StatusCoder is implemented by errors that map to a specific HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

type withStatus struct {
	err    error
	status int
}

func (w *withStatus) Error() string     { return w.err.Error() }
func (w *withStatus) Unwrap() error     { return w.err }
func (w *withStatus) HTTPStatus() int   { return w.status }
func (w *withStatus) IsXerrorsWrapper() {}

// WithStatus tags err with the HTTP status a transport should answer with.
func WithStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	return &withStatus{err: err, status: status}
}

// Status returns the HTTP status tagged on err's chain, or fallback.
func Status(err error, fallback int) int {
	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() > 0 {
		return sc.HTTPStatus()
	}
	return fallback
}
