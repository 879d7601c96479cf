package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaQuery    = "query"
	MetaDevice   = "device"
	MetaBundleID = "bundle_id"
	MetaAction   = "action"
	MetaURL      = "url"

	StageDevice       = "device"
	StageSnapshot     = "snapshot"
	StageLocate       = "locate"
	StageInteraction  = "interaction"
	StageVerification = "verification"
	StageSystem       = "system"
	StageWDA          = "wda"

	CodeInternal         = "internal"
	CodeInvalidArgument  = "invalid_argument"
	CodeInvalidQuery     = "invalid_query"
	CodeNotFound         = "not_found"
	CodeFoundButUnusable = "found_but_unusable"
	CodeUnavailable      = "unavailable"
	CodeTimeout          = "timeout"
	CodeNoTargetApp      = "no_target_app"
	CodeElementExists    = "element_exists"
	CodeTextMismatch     = "text_mismatch"
	CodeActionFailed     = "action_failed"
	CodeNotSupported     = "not_supported"
)

// Process exit statuses reported by the CLI.
const (
	ExitSuccess         = 0
	ExitElementNotFound = 1
	ExitTimeout         = 2
	ExitAppNotRunning   = 3
	ExitCommandFailed   = 4
	ExitInvalidArgs     = 5
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain that carries
// one, or CodeInternal.
func CodeOf(err error) string {
	var appErr *Error
	for err != nil {
		if !errors.As(err, &appErr) {
			break
		}
		if appErr.Code != "" && appErr.Code != CodeInternal {
			return appErr.Code
		}
		err = appErr.Err
	}

	return CodeInternal
}

// Message returns the innermost human readable cause without op prefixes.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var appErr *Error
	for errors.As(err, &appErr) && appErr.Err != nil {
		err = appErr.Err
	}

	return err.Error()
}

func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch CodeOf(err) {
	case CodeNotFound:
		return ExitElementNotFound
	case CodeTimeout:
		return ExitTimeout
	case CodeNoTargetApp:
		return ExitAppNotRunning
	case CodeInvalidArgument, CodeInvalidQuery:
		return ExitInvalidArgs
	default:
		return ExitCommandFailed
	}
}

// Tag is the stable prefix printed on stderr, e.g. "ERR_ELEMENT_NOT_FOUND".
func Tag(err error) string {
	switch CodeOf(err) {
	case CodeNotFound, CodeFoundButUnusable:
		return "ERR_ELEMENT_NOT_FOUND"
	case CodeTimeout:
		return "ERR_TIMEOUT"
	case CodeNoTargetApp:
		return "ERR_NO_TARGET_APP"
	case CodeInvalidArgument, CodeInvalidQuery:
		return "ERR_INVALID_ARGS"
	case CodeElementExists:
		return "ERR_ELEMENT_EXISTS"
	case CodeTextMismatch:
		return "ERR_TEXT_MISMATCH"
	default:
		return "ERR_COMMAND_FAILED"
	}
}
