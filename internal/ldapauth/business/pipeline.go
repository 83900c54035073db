// Бизнес-логика входа: цепочка фильтров, проверка учетных данных в LDAP и создание пользователей каталога.
//
// Основные возможности:
//   - Цепочка входа (LoginPipeline), в которую фильтры встраиваются с приоритетом.
//   - LocalAuthenticator - проверка пароля локальных пользователей.
//   - LdapAuthenticator - bind в каталоге и создание локального пользователя при первом входе.
package business

import (
	"github.com/aisa-it/ldapauth/internal/ldapauth/hooks"
)

// Приоритеты фильтров цепочки входа. Локальная проверка пароля выполняется раньше LDAP.
const (
	LocalFilterPriority = 20
	LdapFilterPriority  = 30
)

// LoginPipeline - цепочка фильтров входа. Каждый фильтр получает результат предыдущего.
type LoginPipeline = hooks.Filter[Outcome, Credentials]

func NewLoginPipeline() *LoginPipeline {
	return hooks.NewFilter[Outcome, Credentials]()
}

// Login прогоняет учетные данные через цепочку, начиная с OutcomeUndecided.
func Login(p *LoginPipeline, creds Credentials) Outcome {
	return p.Apply(Outcome{}, creds)
}
