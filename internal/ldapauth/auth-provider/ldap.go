package authprovider

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateBound
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateBound:
		return "bound"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Атрибуты, запрашиваемые у каталога. Имена сравниваются без учета регистра.
const (
	attrGivenName   = "givenName"
	attrSurname     = "sn"
	attrTitle       = "title"
	attrDisplayName = "cn"
)

const userFilterTemplate = "(&(objectCategory=person)(userPrincipalName=%s))"

type Option func(*LdapConnection)

func WithDialer(d Dialer) Option {
	return func(lc *LdapConnection) {
		lc.dialer = d
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(lc *LdapConnection) {
		lc.dialer = NetDialer{Timeout: timeout}
	}
}

// LdapConnection - соединение с одним LDAP сервером на время одной попытки входа.
// Bind выполняется не более одного раза, поиск допустим только после успешного bind.
type LdapConnection struct {
	address    string
	searchBase string
	dialer     Dialer

	mu            sync.Mutex
	conn          Conn
	state         State
	bindAttempted bool

	closeOnce sync.Once
	closeErr  error
}

// NewLdapConnection проверяет параметры и создает соединение без обращения к сети.
// Некорректный адрес сервера возвращает ErrConnectionSetup.
func NewLdapConnection(params ConnectionParameters, opts ...Option) (*LdapConnection, error) {
	address, err := NormalizeServerAddress(params.ServerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionSetup, err)
	}

	lc := &LdapConnection{
		address:    address,
		searchBase: params.SearchBase,
		dialer:     NetDialer{},
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc, nil
}

func (lc *LdapConnection) State() State {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.state
}

// Authenticate выполняет bind с email и паролем пользователя.
// Пустой пароль отклоняется без обращения к серверу: многие серверы принимают его как анонимный bind.
func (lc *LdapConnection) Authenticate(email string, password string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.bindAttempted || lc.state == StateClosed {
		return false
	}
	lc.bindAttempted = true

	if email == "" || password == "" {
		return false
	}

	if lc.conn == nil {
		conn, err := lc.dialer.Dial(lc.address)
		if err != nil {
			slog.Warn("Dial LDAP", "server", lc.address, "err", err)
			return false
		}
		lc.conn = conn
		lc.state = StateConnected
	}

	if err := lc.conn.Bind(email, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			slog.Debug("LDAP bind rejected", "server", lc.address)
		} else {
			slog.Warn("LDAP bind", "server", lc.address, "err", err)
		}
		return false
	}

	lc.state = StateBound
	return true
}

// GetUserInformation ищет учетную запись по userPrincipalName и возвращает ее атрибуты.
// При нескольких совпадениях используется первое.
func (lc *LdapConnection) GetUserInformation(email string) (DirectoryUserRecord, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.state != StateBound {
		return DirectoryUserRecord{}, false
	}

	searchRequest := ldap.NewSearchRequest(
		lc.searchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf(userFilterTemplate, ldap.EscapeFilter(email)),
		[]string{attrGivenName, attrSurname, attrTitle, attrDisplayName},
		nil,
	)

	sr, err := lc.conn.Search(searchRequest)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		slog.Warn("LDAP search", "server", lc.address, "base", lc.searchBase, "err", err)
		return DirectoryUserRecord{}, false
	}
	if sr == nil || len(sr.Entries) == 0 {
		return DirectoryUserRecord{}, false
	}

	entry := sr.Entries[0]
	return DirectoryUserRecord{
		GivenName:   firstValue(entry, attrGivenName),
		Surname:     firstValue(entry, attrSurname),
		DisplayName: firstValue(entry, attrDisplayName),
		Title:       firstValue(entry, attrTitle),
	}, true
}

// Close освобождает сетевое соединение. Повторные вызовы возвращают результат первого.
func (lc *LdapConnection) Close() error {
	lc.closeOnce.Do(func() {
		lc.mu.Lock()
		defer lc.mu.Unlock()

		if lc.conn != nil {
			lc.closeErr = lc.conn.Close()
			lc.conn = nil
		}
		lc.state = StateClosed
	})
	return lc.closeErr
}

func firstValue(entry *ldap.Entry, attr string) *string {
	values := entry.GetEqualFoldAttributeValues(attr)
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// Probe проверяет доступность сервера: открывает и сразу закрывает соединение без bind.
func Probe(address string, dialer Dialer) error {
	address, err := NormalizeServerAddress(address)
	if err != nil {
		return errors.Join(ErrConnectionSetup, err)
	}
	if dialer == nil {
		dialer = NetDialer{}
	}

	conn, err := dialer.Dial(address)
	if err != nil {
		return err
	}
	return conn.Close()
}
