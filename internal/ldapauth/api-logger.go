// Возврат ошибок API клиенту с логированием.
//
// Основные возможности:
//   - Единый формат ответа с ошибкой (apierrors.DefinedError).
//   - Логирование неожиданных ошибок с методом, URL и местом вызова.
package ldapauth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/labstack/echo/v4"

	"github.com/aisa-it/ldapauth/internal/ldapauth/apierrors"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
)

// Возврат ошибки 500 с универсальным сообщением
func EError(c echo.Context, err error) error {
	var definedErr apierrors.DefinedError
	if errors.As(err, &definedErr) {
		return EErrorDefined(c, definedErr)
	}

	var user *dao.User
	if ctx, ok := c.(AuthContext); ok {
		user = ctx.User
	}
	slog.Error("API error",
		"err", err,
		"method", c.Request().Method,
		"url", c.Request().URL,
		"user", user,
		getCallerFile(),
	)
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// EErrorDefined возвращает JSON-ответ с кодом статуса ошибки. Если код статуса не определен, используется 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

// EErrorsDefined возвращает сразу несколько ошибок, статус берется у первой.
func EErrorsDefined(c echo.Context, errs []apierrors.DefinedError) error {
	return c.JSON(apierrors.StatusOf(errs), apierrors.ErrorsResponse{Errors: errs})
}

func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
