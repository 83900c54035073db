// Package authprovider реализует соединение с LDAP/Active Directory для проверки учётных данных.
//
// Одно соединение (LdapConnection) привязано к одному серверу и одному базовому DN,
// выполняет не более одной попытки bind и затем поиск атрибутов пользователя.
// Соединение открывается лениво при первом Authenticate и закрывается ровно один раз через Close.
//
// Реализации:
//   - LdapConnection (ldap.go) - bind и поиск через go-ldap
//   - NetDialer (dialer.go) - установка TCP/TLS соединения с таймаутом
package authprovider

import (
	"github.com/go-ldap/ldap/v3"
)

// DirectoryConnection - соединение с каталогом на время одной попытки входа.
type DirectoryConnection interface {
	Authenticate(email string, password string) bool
	GetUserInformation(email string) (DirectoryUserRecord, bool)
	Close() error
}

var _ DirectoryConnection = (*LdapConnection)(nil)

// ConnectionParameters - адрес сервера и базовый DN поиска.
type ConnectionParameters struct {
	ServerAddress string
	SearchBase    string
}

// DirectoryUserRecord - атрибуты пользователя из каталога. nil означает, что атрибут не вернулся.
type DirectoryUserRecord struct {
	GivenName   *string
	Surname     *string
	DisplayName *string
	Title       *string
}

// Conn - используемое подмножество *ldap.Conn.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

var _ Conn = (*ldap.Conn)(nil)

// Dialer открывает соединение по адресу вида ldap://host:port.
type Dialer interface {
	Dial(address string) (Conn, error)
}

type DialerFunc func(address string) (Conn, error)

func (f DialerFunc) Dial(address string) (Conn, error) {
	return f(address)
}
