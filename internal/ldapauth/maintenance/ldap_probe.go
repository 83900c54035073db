// Фоновые задачи обслуживания, запускаемые cronmanager.
package maintenance

import (
	"log/slog"

	authprovider "github.com/aisa-it/ldapauth/internal/ldapauth/auth-provider"
	"github.com/aisa-it/ldapauth/internal/ldapauth/business"
)

type DirectoryStatus interface {
	SetDirectoryUp(up bool)
}

// LdapProber периодически проверяет, что настроенный LDAP сервер принимает соединения.
// Bind не выполняется, учетные данные не нужны.
type LdapProber struct {
	settings business.Settings
	dialer   authprovider.Dialer
	status   DirectoryStatus
}

func NewLdapProber(settings business.Settings, dialer authprovider.Dialer, status DirectoryStatus) *LdapProber {
	return &LdapProber{settings: settings, dialer: dialer, status: status}
}

func (lp *LdapProber) ProbeJob() {
	lp.status.SetDirectoryUp(lp.Probe())
}

// Probe возвращает true, если сервер из настройки ldap_server доступен.
func (lp *LdapProber) Probe() bool {
	server, ok := lp.settings.Get(business.SettingLdapServer)
	if !ok || server == "" {
		slog.Debug("LDAP server is not configured, skip probe")
		return false
	}

	if err := authprovider.Probe(server, lp.dialer); err != nil {
		slog.Warn("LDAP server probe", "server", server, "err", err)
		return false
	}
	return true
}
