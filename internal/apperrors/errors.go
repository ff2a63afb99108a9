package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the auth probe rejects the account or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidationFailed is returned when re-validating a stored session fails.
	ErrValidationFailed = errors.New("session validation failed")
	// ErrNetwork wraps transport-level failures.
	ErrNetwork = errors.New("network error")

	ErrEmptyContent   = errors.New("empty content")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrDeleteInFlight = errors.New("delete already in progress")
	ErrFetchInFlight  = errors.New("fetch already in progress")
	ErrInvalidInput   = errors.New("invalid input")
)

// LoginFailedError carries the reason for a login failure that was not an
// authentication rejection.
type LoginFailedError struct {
	Reason string
	Err    error
}

func (e *LoginFailedError) Error() string {
	return "login failed: " + e.Reason
}

func (e *LoginFailedError) Unwrap() error {
	return e.Err
}

// APIError is a failure reported by the remote API, either as a
// success:false envelope or as a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsAuthFailure reports whether err is an authentication-class rejection.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
		return true
	}
	return strings.Contains(apiErr.Message, "Authentication failed") ||
		strings.Contains(apiErr.Message, "Unauthorized")
}

// Reason extracts the most specific message carried by err.
func Reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var loginErr *LoginFailedError
	if errors.As(err, &loginErr) {
		return loginErr.Reason
	}
	return err.Error()
}

// UserMessage maps err to the short text shown in a transient notification.
// Server messages are shown verbatim; anything unrecognised gets fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var loginErr *LoginFailedError
	var apiErr *APIError

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "账号或密码错误"
	case errors.As(err, &loginErr):
		return "登录失败: " + loginErr.Reason
	case errors.Is(err, ErrValidationFailed):
		return "认证已失效，请重新登录"
	case errors.Is(err, ErrEmptyContent):
		return "请输入内容"
	case errors.Is(err, ErrInvalidTarget):
		return "操作对象无效"
	case errors.Is(err, ErrUnauthorized):
		return "没有权限执行此操作"
	case errors.Is(err, ErrDeleteInFlight):
		return "正在删除，请稍候"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "请求超时，请重试"
	case errors.Is(err, ErrNetwork):
		return "网络异常，请稍后重试"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return fallback
}
