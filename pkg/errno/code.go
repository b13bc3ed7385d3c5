package errno

// code=0 request succeeded
// code=4xx client error
// code=5xx server error
// code=2xxxx business error

type Errno struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrForbidden    = &Errno{Code: 403, Message: "Forbidden"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}

	// publish pipeline
	ErrSourcePathRequired = &Errno{Code: 20001, Message: "Source path is required"}
	ErrSourceNotReadable  = &Errno{Code: 20002, Message: "Source file is not readable"}
	ErrUnsupportedMime    = &Errno{Code: 20003, Message: "Unsupported media type"}
	ErrTargetRequired     = &Errno{Code: 20004, Message: "Audience target is required"}
	ErrUnknownTarget      = &Errno{Code: 20005, Message: "Unknown audience target"}
	ErrMalformedSource    = &Errno{Code: 20006, Message: "Source media could not be probed"}
	ErrTranscodeFailed    = &Errno{Code: 20007, Message: "Transcode failed"}
	ErrQueueClosed        = &Errno{Code: 20008, Message: "Transcode queue is closed"}
	ErrPublishNotFound    = &Errno{Code: 20009, Message: "Publish job not found"}

	// media serving
	ErrPathOutsideRoot = &Errno{Code: 20020, Message: "Path escapes the media root"}
	ErrManifestMissing = &Errno{Code: 20021, Message: "No catalog published for target"}
)
