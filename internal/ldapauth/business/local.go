package business

import (
	"log/slog"

	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
)

type UserFinder interface {
	FindByEmail(email string) (*dao.User, bool, error)
}

// LocalAuthenticator проверяет пароль локальных пользователей (AuthProvider == "local").
// Пользователи каталога пропускаются и проверяются LdapAuthenticator.
type LocalAuthenticator struct {
	users UserFinder
}

func NewLocalAuthenticator(users UserFinder) *LocalAuthenticator {
	return &LocalAuthenticator{users: users}
}

func (a *LocalAuthenticator) Register(p *LoginPipeline) {
	p.Add("local", LocalFilterPriority, func(prior Outcome, creds Credentials) Outcome {
		return a.Authenticate(prior, creds.Email, creds.Password)
	})
}

func (a *LocalAuthenticator) Authenticate(prior Outcome, email string, password string) Outcome {
	if prior.IsAuthenticated() {
		return prior
	}

	if empty := EmptyCredentials(email, password); empty.IsFailure() {
		return empty
	}

	user, found, err := a.users.FindByEmail(email)
	if err != nil {
		slog.Error("Find user by email", "err", err)
		return prior
	}
	if !found || user.AuthProvider != dao.AuthProviderLocal {
		return prior
	}

	if !user.IsActive || !dao.CheckPassword(password, user.Password) {
		return Rejected(OutcomeInvalidCredentials)
	}
	return Authenticated(user)
}
