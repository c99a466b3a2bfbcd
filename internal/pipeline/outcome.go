package pipeline

// Response is the successful result of a handler.
type Response struct {
	Status int
}

// Outcome is either a response or an error, never both.
type Outcome struct {
	resp *Response
	err  error
}

// Success wraps a response. A nil response is treated as an empty 200.
func Success(resp *Response) Outcome {
	if resp == nil {
		resp = &Response{Status: 200}
	}
	return Outcome{resp: resp}
}

// Failure wraps an error. A nil error still yields a failed outcome.
func Failure(err error) Outcome {
	if err == nil {
		err = ErrUnknown
	}
	return Outcome{err: err}
}

func (o Outcome) Failed() bool { return o.err != nil }

// Response returns the response, or nil for a failed outcome.
func (o Outcome) Response() *Response { return o.resp }

// Err returns the error, or nil for a successful outcome.
func (o Outcome) Err() error { return o.err }
