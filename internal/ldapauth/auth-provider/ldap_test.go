package authprovider

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu sync.Mutex

	bindErr   error
	entries   []*ldap.Entry
	searchErr error

	binds    []string
	requests []*ldap.SearchRequest
	closes   int
}

func (f *fakeConn) Bind(username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, username)
	return f.bindErr
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &ldap.SearchResult{Entries: f.entries}, f.searchErr
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// fakeDialer считает открытые соединения и отдает один и тот же fakeConn.
type fakeDialer struct {
	conn    *fakeConn
	err     error
	dials   int
	address string
}

func (d *fakeDialer) Dial(address string) (Conn, error) {
	d.dials++
	d.address = address
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func newTestConnection(t *testing.T, conn *fakeConn) (*LdapConnection, *fakeDialer) {
	d := &fakeDialer{conn: conn}
	lc, err := NewLdapConnection(ConnectionParameters{
		ServerAddress: "ldap.example.com",
		SearchBase:    "dc=example,dc=com",
	}, WithDialer(d))
	require.NoError(t, err)
	return lc, d
}

func TestNormalizeServerAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ldap.example.com", "ldap://ldap.example.com:389"},
		{"ldap.example.com:3268", "ldap://ldap.example.com:3268"},
		{" ldap://ldap.example.com ", "ldap://ldap.example.com"},
		{"LDAPS://ldap.example.com:636", "ldaps://ldap.example.com:636"},
		{"10.0.0.1", "ldap://10.0.0.1:389"},
	}
	for _, c := range cases {
		got, err := NormalizeServerAddress(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
	}

	for _, bad := range []string{"", "   ", "http://ldap.example.com", "ldap://", "host:notaport", "host:70000", "a b"} {
		_, err := NormalizeServerAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewLdapConnection(t *testing.T) {
	t.Run("malformed address", func(t *testing.T) {
		_, err := NewLdapConnection(ConnectionParameters{ServerAddress: "ftp://nowhere"})
		assert.ErrorIs(t, err, ErrConnectionSetup)
	})

	t.Run("timeout option uses network dialer", func(t *testing.T) {
		lc, err := NewLdapConnection(ConnectionParameters{ServerAddress: "ldap.example.com"}, WithTimeout(3*time.Second))
		require.NoError(t, err)
		assert.Equal(t, NetDialer{Timeout: 3 * time.Second}, lc.dialer)
	})

	t.Run("no network until authenticate", func(t *testing.T) {
		lc, d := newTestConnection(t, &fakeConn{})
		assert.Equal(t, 0, d.dials)
		assert.Equal(t, StateUnconnected, lc.State())
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		conn := &fakeConn{}
		lc, d := newTestConnection(t, conn)

		assert.True(t, lc.Authenticate("ada@example.com", "secret"))
		assert.Equal(t, StateBound, lc.State())
		assert.Equal(t, "ldap://ldap.example.com:389", d.address)
		assert.Equal(t, []string{"ada@example.com"}, conn.binds)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		conn := &fakeConn{bindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad"))}
		lc, _ := newTestConnection(t, conn)

		assert.False(t, lc.Authenticate("ada@example.com", "wrong"))
		assert.Equal(t, StateConnected, lc.State())

		// the handle dialed for the rejected bind is still released
		require.NoError(t, lc.Close())
		assert.Equal(t, 1, conn.closes)
		assert.Equal(t, StateClosed, lc.State())
	})

	t.Run("empty password never reaches server", func(t *testing.T) {
		conn := &fakeConn{}
		lc, d := newTestConnection(t, conn)

		assert.False(t, lc.Authenticate("ada@example.com", ""))
		assert.Equal(t, 0, d.dials)
		assert.Empty(t, conn.binds)
	})

	t.Run("unreachable server", func(t *testing.T) {
		lc, d := newTestConnection(t, nil)
		d.err = ldap.NewError(ldap.ErrorNetwork, errors.New("connection refused"))

		assert.False(t, lc.Authenticate("ada@example.com", "secret"))
		assert.Equal(t, StateUnconnected, lc.State())
		assert.NoError(t, lc.Close())
	})

	t.Run("single bind per connection", func(t *testing.T) {
		conn := &fakeConn{}
		lc, d := newTestConnection(t, conn)

		assert.True(t, lc.Authenticate("ada@example.com", "secret"))
		assert.False(t, lc.Authenticate("ada@example.com", "secret"))
		assert.Equal(t, 1, d.dials)
		assert.Len(t, conn.binds, 1)
	})

	t.Run("closed connection", func(t *testing.T) {
		conn := &fakeConn{}
		lc, d := newTestConnection(t, conn)
		require.NoError(t, lc.Close())

		assert.False(t, lc.Authenticate("ada@example.com", "secret"))
		assert.Equal(t, 0, d.dials)
	})
}

func TestGetUserInformation(t *testing.T) {
	t.Run("requires bind", func(t *testing.T) {
		conn := &fakeConn{}
		lc, _ := newTestConnection(t, conn)

		_, found := lc.GetUserInformation("ada@example.com")
		assert.False(t, found)
		assert.Empty(t, conn.requests)
	})

	t.Run("attributes", func(t *testing.T) {
		conn := &fakeConn{entries: []*ldap.Entry{
			ldap.NewEntry("cn=Ada Lovelace,dc=example,dc=com", map[string][]string{
				"GIVENNAME": {"Ada"},
				"sn":        {"Lovelace"},
				"cn":        {"Ada Lovelace"},
			}),
			ldap.NewEntry("cn=Other,dc=example,dc=com", map[string][]string{
				"givenName": {"Other"},
			}),
		}}
		lc, _ := newTestConnection(t, conn)
		require.True(t, lc.Authenticate("ada@example.com", "secret"))

		rec, found := lc.GetUserInformation("ada@example.com")
		require.True(t, found)
		require.NotNil(t, rec.GivenName)
		assert.Equal(t, "Ada", *rec.GivenName)
		require.NotNil(t, rec.Surname)
		assert.Equal(t, "Lovelace", *rec.Surname)
		require.NotNil(t, rec.DisplayName)
		assert.Equal(t, "Ada Lovelace", *rec.DisplayName)
		assert.Nil(t, rec.Title)

		require.Len(t, conn.requests, 1)
		req := conn.requests[0]
		assert.Equal(t, "dc=example,dc=com", req.BaseDN)
		assert.Equal(t, ldap.ScopeWholeSubtree, req.Scope)
		assert.Equal(t, 1, req.SizeLimit)
		assert.Equal(t, "(&(objectCategory=person)(userPrincipalName=ada@example.com))", req.Filter)
		assert.ElementsMatch(t, []string{"givenName", "sn", "title", "cn"}, req.Attributes)
	})

	t.Run("filter is escaped", func(t *testing.T) {
		conn := &fakeConn{}
		lc, _ := newTestConnection(t, conn)
		require.True(t, lc.Authenticate("a*)(cn=*", "secret"))

		_, found := lc.GetUserInformation("a*)(cn=*")
		assert.False(t, found)
		require.Len(t, conn.requests, 1)
		assert.Equal(t, `(&(objectCategory=person)(userPrincipalName=a\2a\29\28cn=\2a))`, conn.requests[0].Filter)
	})

	t.Run("no entries", func(t *testing.T) {
		lc, _ := newTestConnection(t, &fakeConn{})
		require.True(t, lc.Authenticate("ada@example.com", "secret"))

		_, found := lc.GetUserInformation("ada@example.com")
		assert.False(t, found)
	})

	t.Run("size limit keeps first entry", func(t *testing.T) {
		conn := &fakeConn{
			entries:   []*ldap.Entry{ldap.NewEntry("cn=Ada", map[string][]string{"title": {"Countess"}})},
			searchErr: ldap.NewError(ldap.LDAPResultSizeLimitExceeded, errors.New("size limit")),
		}
		lc, _ := newTestConnection(t, conn)
		require.True(t, lc.Authenticate("ada@example.com", "secret"))

		rec, found := lc.GetUserInformation("ada@example.com")
		require.True(t, found)
		require.NotNil(t, rec.Title)
		assert.Equal(t, "Countess", *rec.Title)
	})

	t.Run("search failure", func(t *testing.T) {
		conn := &fakeConn{searchErr: ldap.NewError(ldap.LDAPResultOperationsError, errors.New("boom"))}
		lc, _ := newTestConnection(t, conn)
		require.True(t, lc.Authenticate("ada@example.com", "secret"))

		_, found := lc.GetUserInformation("ada@example.com")
		assert.False(t, found)
	})
}

func TestClose(t *testing.T) {
	t.Run("releases exactly once", func(t *testing.T) {
		conn := &fakeConn{}
		lc, _ := newTestConnection(t, conn)
		require.True(t, lc.Authenticate("ada@example.com", "secret"))

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, lc.Close())
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, conn.closes)
		assert.Equal(t, StateClosed, lc.State())

		_, found := lc.GetUserInformation("ada@example.com")
		assert.False(t, found)
	})

	t.Run("never dialed", func(t *testing.T) {
		lc, _ := newTestConnection(t, &fakeConn{})
		assert.NoError(t, lc.Close())
		assert.Equal(t, StateClosed, lc.State())
	})
}

func TestProbe(t *testing.T) {
	conn := &fakeConn{}
	d := &fakeDialer{conn: conn}
	require.NoError(t, Probe("ldap.example.com:389", d))
	assert.Equal(t, 1, conn.closes)

	d.err = errors.New("refused")
	assert.Error(t, Probe("ldap.example.com", d))

	assert.ErrorIs(t, Probe("", d), ErrConnectionSetup)
}
