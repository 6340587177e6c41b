package checks

type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"

	// StatusError is reserved for the doctor engine: it marks a check that
	// could not execute at all. Checks themselves return an error instead.
	StatusError Status = "ERROR"
)

type Result struct {
	CheckID string `json:"check_id"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	// Detail holds supporting lines shown under the message.
	Detail   []string `json:"detail,omitempty"`
	Required bool     `json:"required"`
}

func NewResult(c Check, status Status, message string) Result {
	res := Result{Status: status}
	if c != nil {
		res.CheckID = c.ID()
		res.Title = c.Title()
		res.Required = c.Required()
	}
	if message != "" {
		res.Message = message
	}
	return res
}

func Pass(c Check, message string) Result {
	return NewResult(c, StatusPass, message)
}

func Warn(c Check, message string) Result {
	return NewResult(c, StatusWarn, message)
}

func Fail(c Check, message string) Result {
	return NewResult(c, StatusFail, message)
}

func Skip(c Check, message string) Result {
	return NewResult(c, StatusSkip, message)
}

func ErrorResult(c Check, message string) Result {
	return NewResult(c, StatusError, message)
}

func PassWithDetail(c Check, message string, detail ...string) Result {
	res := NewResult(c, StatusPass, message)
	res.Detail = detail
	return res
}

func WarnWithDetail(c Check, message string, detail ...string) Result {
	res := NewResult(c, StatusWarn, message)
	res.Detail = detail
	return res
}

func FailWithDetail(c Check, message string, detail ...string) Result {
	res := NewResult(c, StatusFail, message)
	res.Detail = detail
	return res
}
