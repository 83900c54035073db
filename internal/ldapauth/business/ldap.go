package business

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/singleflight"

	authprovider "github.com/aisa-it/ldapauth/internal/ldapauth/auth-provider"
	"github.com/aisa-it/ldapauth/internal/ldapauth/dao"
)

// Настройки, которые читает LdapAuthenticator (короткие имена, без префикса).
const (
	SettingLdapServer  = "ldap_server"
	SettingLdapDN      = "ldap_dn"
	SettingNewUserRole = "new_user_role"

	DefaultUserRole = "subscriber"
)

// Settings - источник настроек. Реализуется config.Resolver.
type Settings interface {
	Get(slug string) (string, bool)
	GetOr(slug string, def string) string
}

// IdentityStore - локальное хранилище пользователей. Реализуется dao.UserStore.
type IdentityStore interface {
	FindByEmail(email string) (*dao.User, bool, error)
	CreateUser(email string, password string, usernameEqualsEmail bool) (uuid.UUID, error)
	UpdateUser(id uuid.UUID, fields dao.UserFields) error
}

// ConnectionFactory создает новое соединение с каталогом на каждую попытку входа.
type ConnectionFactory func(params authprovider.ConnectionParameters) (authprovider.DirectoryConnection, error)

// LdapConnectionFactory возвращает фабрику соединений go-ldap.
func LdapConnectionFactory(opts ...authprovider.Option) ConnectionFactory {
	return func(params authprovider.ConnectionParameters) (authprovider.DirectoryConnection, error) {
		lc, err := authprovider.NewLdapConnection(params, opts...)
		if err != nil {
			return nil, err
		}
		return lc, nil
	}
}

// LdapAuthenticator проверяет учетные данные в каталоге и при первом входе создает локального пользователя.
type LdapAuthenticator struct {
	settings Settings
	store    IdentityStore
	connect  ConnectionFactory

	// concurrent first logins of one email share a single provisioning
	provisioning singleflight.Group
}

func NewLdapAuthenticator(settings Settings, store IdentityStore, connect ConnectionFactory) *LdapAuthenticator {
	return &LdapAuthenticator{
		settings: settings,
		store:    store,
		connect:  connect,
	}
}

// Register добавляет аутентификатор в цепочку входа.
func (a *LdapAuthenticator) Register(p *LoginPipeline) {
	p.Add("ldap", LdapFilterPriority, func(prior Outcome, creds Credentials) Outcome {
		return a.Authenticate(prior, creds.Email, creds.Password)
	})
}

// Authenticate принимает результат предыдущих фильтров и учетные данные и возвращает итоговый результат.
// Успех предыдущего фильтра не переопределяется.
func (a *LdapAuthenticator) Authenticate(prior Outcome, email string, password string) Outcome {
	if prior.IsAuthenticated() {
		return prior
	}

	if email == "" || password == "" {
		if prior.IsFailure() {
			return prior
		}
		return EmptyCredentials(email, password)
	}

	server, serverOk := a.settings.Get(SettingLdapServer)
	searchBase, searchBaseOk := a.settings.Get(SettingLdapDN)
	if !serverOk || !searchBaseOk || strings.TrimSpace(server) == "" || strings.TrimSpace(searchBase) == "" {
		slog.Warn("LDAP login is not configured", "serverSet", serverOk && server != "", "searchBaseSet", searchBaseOk && searchBase != "")
		return Rejected(OutcomeInvalidConfiguration)
	}

	conn, err := a.connect(authprovider.ConnectionParameters{
		ServerAddress: server,
		SearchBase:    searchBase,
	})
	if err != nil {
		slog.Warn("LDAP connection setup", "server", server, "err", err)
		return Rejected(OutcomeInvalidCredentials)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("Close LDAP connection", "err", err)
		}
	}()

	if !conn.Authenticate(email, password) {
		return Rejected(OutcomeInvalidCredentials)
	}

	user, found, err := a.store.FindByEmail(email)
	if err != nil {
		slog.Error("Find user by email", "err", err)
		return Rejected(OutcomeUnknownDirectoryUser)
	}
	if found {
		return Authenticated(user)
	}

	v, _, shared := a.provisioning.Do(strings.ToLower(email), func() (any, error) {
		return a.provision(conn, email), nil
	})
	outcome := v.(Outcome)
	if shared && outcome.IsAuthenticated() {
		// every waiter gets its own copy of the user
		return a.reload(email)
	}
	return outcome
}

func (a *LdapAuthenticator) provision(conn authprovider.DirectoryConnection, email string) Outcome {
	record, found := conn.GetUserInformation(email)
	if !found {
		slog.Info("LDAP user has no directory entry")
		return Rejected(OutcomeUnknownDirectoryUser)
	}

	id, err := a.store.CreateUser(email, dao.GenPassword(), true)
	if err != nil {
		if errors.Is(err, dao.ErrUserAlreadyExists) {
			// created by another instance between lookup and insert
			return a.reload(email)
		}
		slog.Error("Create LDAP user", "err", err)
		return Rejected(OutcomeUnknownDirectoryUser)
	}

	role := a.settings.GetOr(SettingNewUserRole, DefaultUserRole)
	if err := a.store.UpdateUser(id, dao.UserFields{
		DisplayName: record.DisplayName,
		FirstName:   record.GivenName,
		LastName:    record.Surname,
		Role:        &role,
	}); err != nil {
		slog.Error("Update LDAP user attributes", "userId", id, "err", err)
	}

	slog.Info("New LDAP user provisioned", "userId", id, "role", role)
	return a.reload(email)
}

func (a *LdapAuthenticator) reload(email string) Outcome {
	user, found, err := a.store.FindByEmail(email)
	if err != nil || !found {
		slog.Error("Reload provisioned user", "found", found, "err", err)
		return Rejected(OutcomeUnknownDirectoryUser)
	}
	return Authenticated(user)
}
