package authprovider

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

var ErrConnectionSetup = errors.New("ldap connection setup failed")

// NetDialer - Dialer по умолчанию. Timeout ограничивает и установку соединения, и каждый запрос.
type NetDialer struct {
	Timeout time.Duration
}

func (d NetDialer) Dial(address string) (Conn, error) {
	var opts []ldap.DialOpt
	if d.Timeout > 0 {
		opts = append(opts, ldap.DialWithDialer(&net.Dialer{Timeout: d.Timeout}))
	}

	l, err := ldap.DialURL(address, opts...)
	if err != nil {
		return nil, err
	}

	if d.Timeout > 0 {
		l.SetTimeout(d.Timeout)
	}
	return l, nil
}

// NormalizeServerAddress приводит адрес сервера к URL для ldap.DialURL.
// Принимает ldap:// и ldaps:// URL или голый host[:port] (тогда используется ldap://).
func NormalizeServerAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New("empty server address")
	}

	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(u.Scheme) {
		case "ldap", "ldaps":
		default:
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		if u.Hostname() == "" {
			return "", errors.New("missing host")
		}
		if port := u.Port(); port != "" {
			if err := validatePort(port); err != nil {
				return "", err
			}
		}
		return strings.ToLower(u.Scheme) + "://" + u.Host, nil
	}

	if strings.ContainsAny(address, "/ ?#@") {
		return "", fmt.Errorf("malformed server address %q", address)
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// no port, the whole address is a host
		host = address
		port = ldap.DefaultLdapPort
	}
	if host == "" {
		return "", errors.New("missing host")
	}
	if err := validatePort(port); err != nil {
		return "", err
	}
	return "ldap://" + net.JoinHostPort(strings.Trim(host, "[]"), port), nil
}

func validatePort(port string) error {
	p, err := net.LookupPort("tcp", port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
