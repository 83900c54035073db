// Пакет содержит определения ошибок, которые сервис аутентификации возвращает клиенту.
// Каждая ошибка имеет машиночитаемый ключ, числовой код, статус HTTP и описание на английском и русском языках.
//
// Основные возможности:
//   - Ошибки входа (пустые поля, неверная конфигурация LDAP, неверные учётные данные, неизвестный пользователь каталога).
//   - Определение HTTP статуса ответа по набору ошибок.
//
// Сообщения для неверных учётных данных, ошибок соединения и неизвестного пользователя каталога намеренно одинаковые,
// чтобы ответ не раскрывал, на каком шаге вход не удался.
package apierrors

import (
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	Key        string `json:"key"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

const cannotLogin = "cannot log in"
const cannotLoginRu = "Не удалось войти в систему"

var (
	// 1*** - auth errors
	ErrEmptyUsername         = DefinedError{Code: 1001, Key: "empty_username", StatusCode: http.StatusBadRequest, Err: "the username field is empty", RuErr: "Поле email не может быть пустым"}
	ErrEmptyPassword         = DefinedError{Code: 1002, Key: "empty_password", StatusCode: http.StatusBadRequest, Err: "the password field is empty", RuErr: "Поле пароль не может быть пустым"}
	ErrInvalidLdapConnection = DefinedError{Code: 1003, Key: "invalid_ldap_connection", StatusCode: http.StatusServiceUnavailable, Err: "directory login is not configured", RuErr: "Вход через LDAP не настроен"}
	ErrInvalidLdapLogin      = DefinedError{Code: 1004, Key: "invalid_ldap_login", StatusCode: http.StatusUnauthorized, Err: cannotLogin, RuErr: cannotLoginRu}
	ErrInvalidLdapUser       = DefinedError{Code: 1005, Key: "invalid_ldap_user", StatusCode: http.StatusUnauthorized, Err: cannotLogin, RuErr: cannotLoginRu}
	ErrTooManyLoginAttempts  = DefinedError{Code: 1006, Key: "too_many_login_attempts", StatusCode: http.StatusTooManyRequests, Err: "too many login attempts, try later", RuErr: "Слишком много попыток входа, попробуйте позже"}
	ErrCaptchaFail           = DefinedError{Code: 1007, Key: "invalid_captcha", StatusCode: http.StatusUnauthorized, Err: "invalid captcha", RuErr: "Капча введена неверно"}

	// 2*** - token errors
	ErrTokenInvalid = DefinedError{Code: 2001, Key: "token_invalid", StatusCode: http.StatusUnauthorized, Err: "token is invalid or expired", RuErr: "Токен недействителен или истёк"}

	// 9*** - common errors
	ErrGeneric       = DefinedError{Code: 9001, Key: "generic", StatusCode: http.StatusInternalServerError, Err: "internal error, try later", RuErr: "Внутренняя ошибка, попробуйте позже"}
	ErrRequestFormat = DefinedError{Code: 9002, Key: "invalid_request", StatusCode: http.StatusBadRequest, Err: "invalid request format", RuErr: "Некорректный формат запроса"}
)

// ErrorsResponse - тело ответа, когда вход отклонён одной или несколькими ошибками.
type ErrorsResponse struct {
	Errors []DefinedError `json:"errors"`
}

// StatusOf возвращает HTTP статус для набора ошибок: статус первой ошибки или 500.
func StatusOf(errs []DefinedError) int {
	if len(errs) == 0 || errs[0].StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return errs[0].StatusCode
}
