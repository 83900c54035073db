package dao

import (
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает тестовую БД SQLite в памяти
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// single connection, otherwise every pooled connection gets its own :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func ptr(s string) *string { return &s }

func TestPasswordHash(t *testing.T) {
	pass := GenPassword()
	assert.Len(t, pass, 32)

	hash := GenPasswordHash(pass)
	assert.True(t, CheckPassword(pass, hash))
	assert.False(t, CheckPassword(pass+"x", hash))
	assert.False(t, CheckPassword(pass, "plain"))
	assert.NotEqual(t, hash, GenPasswordHash(pass), "salt must differ")
}

func TestUserStore(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)

	t.Run("find missing user", func(t *testing.T) {
		user, found, err := store.FindByEmail("nobody@example.com")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, user)
	})

	t.Run("create and find", func(t *testing.T) {
		id, err := store.CreateUser("Ada@Example.com", "random-secret", true)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		user, found, err := store.FindByEmail("ada@example.com")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "ada@example.com", user.Email)
		require.NotNil(t, user.Username)
		assert.Equal(t, "ada@example.com", *user.Username)
		assert.Equal(t, AuthProviderLdap, user.AuthProvider)
		assert.True(t, user.IsActive)
		assert.True(t, CheckPassword("random-secret", user.Password))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := store.CreateUser("ADA@example.com", "other", true)
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		_, err := store.CreateUser("empty@example.com", "", false)
		assert.Error(t, err)
	})

	t.Run("update only given fields", func(t *testing.T) {
		id, err := store.CreateUser("grace@example.com", "secret", false)
		require.NoError(t, err)

		require.NoError(t, store.UpdateUser(id, UserFields{
			DisplayName: ptr("Grace Hopper"),
			FirstName:   ptr("Grace"),
			Role:        ptr("subscriber"),
		}))

		user, err := store.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "Grace Hopper", user.DisplayName)
		assert.Equal(t, "Grace", user.FirstName)
		assert.Equal(t, "", user.LastName)
		require.NotNil(t, user.Role)
		assert.Equal(t, "subscriber", *user.Role)
		assert.Nil(t, user.Username)
	})

	t.Run("update unknown user", func(t *testing.T) {
		err := store.UpdateUser(GenUUID(), UserFields{FirstName: ptr("x")})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("touch login", func(t *testing.T) {
		user, _, err := store.FindByEmail("grace@example.com")
		require.NoError(t, err)
		require.NoError(t, store.TouchLogin(user))

		reloaded, err := store.GetByID(user.ID)
		require.NoError(t, err)
		assert.NotNil(t, reloaded.LastLoginTime)
	})
}

func TestUserStoreConcurrentCreate(t *testing.T) {
	store := NewUserStore(setupTestDB(t))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.CreateUser("race@example.com", "secret", true)
		}()
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrUserAlreadyExists)
		}
	}
	assert.Equal(t, 1, created)
}

func TestSettingStore(t *testing.T) {
	store := NewSettingStore(setupTestDB(t))

	_, ok := store.Lookup("ldapauth_ldap_server")
	assert.False(t, ok)

	require.NoError(t, store.Set("LDAPAUTH_LDAP_SERVER", "ldap://one.example.com"))
	v, ok := store.Lookup("ldapauth_ldap_server")
	assert.True(t, ok)
	assert.Equal(t, "ldap://one.example.com", v)

	require.NoError(t, store.Set("ldapauth_ldap_server", "ldap://two.example.com"))
	v, ok = store.Lookup("ldapauth_ldap_server")
	assert.True(t, ok)
	assert.Equal(t, "ldap://two.example.com", v)

	require.NoError(t, store.Set("ldapauth_flag", "0"))
	v, ok = store.Lookup("ldapauth_flag")
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	require.NoError(t, store.Delete("ldapauth_ldap_server"))
	_, ok = store.Lookup("ldapauth_ldap_server")
	assert.False(t, ok)
}

func TestRevokedTokenStore(t *testing.T) {
	store := NewRevokedTokenStore(setupTestDB(t))
	now := time.Now()

	revoked, err := store.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke("jti-1", now.Add(time.Hour)))
	require.NoError(t, store.Revoke("jti-1", now.Add(time.Hour)), "second revoke is a no-op")
	require.NoError(t, store.Revoke("jti-2", now.Add(-time.Minute)))

	revoked, err = store.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	purged, err := store.Purge(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	revoked, err = store.IsRevoked("jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = store.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
