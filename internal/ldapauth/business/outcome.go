package business

import (
	"github.com/aisa-it/ldapauth/internal/ldapauth/apierrors"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
)

type OutcomeKind int

const (
	// OutcomeUndecided - ни один фильтр цепочки входа еще не принял решение.
	OutcomeUndecided OutcomeKind = iota
	OutcomeAuthenticated
	OutcomeEmptyCredentials
	OutcomeInvalidConfiguration
	OutcomeInvalidCredentials
	OutcomeUnknownDirectoryUser
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUndecided:
		return "undecided"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeEmptyCredentials:
		return "empty_credentials"
	case OutcomeInvalidConfiguration:
		return "invalid_configuration"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeUnknownDirectoryUser:
		return "unknown_directory_user"
	}
	return "unknown"
}

// Credentials - учетные данные попытки входа. Не логируются и не сохраняются.
type Credentials struct {
	Email    string
	Password string
}

// Outcome - результат попытки входа. User заполнен только для OutcomeAuthenticated,
// Missing - только для OutcomeEmptyCredentials.
type Outcome struct {
	Kind    OutcomeKind
	User    *dao.User
	Missing []apierrors.DefinedError
}

func Authenticated(user *dao.User) Outcome {
	return Outcome{Kind: OutcomeAuthenticated, User: user}
}

func Rejected(kind OutcomeKind) Outcome {
	return Outcome{Kind: kind}
}

// EmptyCredentials проверяет оба поля независимо и перечисляет все пустые.
// Если пустых полей нет, возвращает OutcomeUndecided.
func EmptyCredentials(email, password string) Outcome {
	var missing []apierrors.DefinedError
	if email == "" {
		missing = append(missing, apierrors.ErrEmptyUsername)
	}
	if password == "" {
		missing = append(missing, apierrors.ErrEmptyPassword)
	}
	if len(missing) == 0 {
		return Outcome{}
	}
	return Outcome{Kind: OutcomeEmptyCredentials, Missing: missing}
}

func (o Outcome) IsAuthenticated() bool {
	return o.Kind == OutcomeAuthenticated && o.User != nil
}

func (o Outcome) IsFailure() bool {
	return o.Kind != OutcomeUndecided && o.Kind != OutcomeAuthenticated
}

// Errors возвращает ошибки для ответа клиенту. Для успешного входа - nil.
func (o Outcome) Errors() []apierrors.DefinedError {
	switch o.Kind {
	case OutcomeAuthenticated:
		return nil
	case OutcomeEmptyCredentials:
		return o.Missing
	case OutcomeInvalidConfiguration:
		return []apierrors.DefinedError{apierrors.ErrInvalidLdapConnection}
	case OutcomeInvalidCredentials:
		return []apierrors.DefinedError{apierrors.ErrInvalidLdapLogin}
	}
	// unknown directory user and an undecided pipeline look the same to the client
	return []apierrors.DefinedError{apierrors.ErrInvalidLdapUser}
}
