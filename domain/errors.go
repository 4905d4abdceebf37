package domain

import "errors"

var (
	ErrorTaskNotFound           = errors.New("task not found")
	ErrorAborterExists          = errors.New("aborter already registered for status message")
	ErrorStatusMessageDeleted   = errors.New("status message already deleted")
	ErrorChannelAbandoned       = errors.New("result receiver abandoned")
	ErrorUnknownStorageDriver   = errors.New("unknown storage driver")
	ErrorAuthorizationCancelled = errors.New("authorization cancelled")
	ErrorSessionNotAuthorized   = errors.New("mtproto session is not authorized")
)
