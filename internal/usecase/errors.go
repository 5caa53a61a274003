package usecase

import "fmt"

// エラーコード。レスポンスボディの code フィールドに載せる。
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeInternal            = "INTERNAL"
)

// HTTPError はユースケース層からHTTPステータスとエラーコードを運ぶ。
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code, message string) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message}
}

// AsHTTPError はハンドラ側でのエラー変換に使う。
func AsHTTPError(err error) (*HTTPError, bool) {
	he, ok := err.(*HTTPError)
	return he, ok
}
