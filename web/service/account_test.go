package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thucvatbm/species-catalog/database"
	"github.com/thucvatbm/species-catalog/database/model"
)

func TestBootstrapIsIdempotent(t *testing.T) {
	setupDB(t)
	svc := AccountService{}

	created, err := svc.Bootstrap("admin", "secret")
	require.NoError(t, err)
	assert.True(t, created)

	first, err := svc.GetFirst()
	require.NoError(t, err)
	assert.NotEqual(t, "secret", first.PasswordHash)

	created, err = svc.Bootstrap("admin", "another")
	require.NoError(t, err)
	assert.False(t, created)

	var accounts []model.Account
	require.NoError(t, database.GetDB().Find(&accounts).Error)
	require.Len(t, accounts, 1)
	assert.Equal(t, first.PasswordHash, accounts[0].PasswordHash)
	assert.NotNil(t, svc.Verify("admin", "secret"))
	assert.Nil(t, svc.Verify("admin", "another"))
}

func TestBootstrapRejectsEmptyCredentials(t *testing.T) {
	setupDB(t)
	svc := AccountService{}

	_, err := svc.Bootstrap("", "x")
	assert.Error(t, err)
	_, err = svc.Bootstrap("admin", "")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	setupDB(t)
	svc := AccountService{}
	_, err := svc.Bootstrap("admin", "Bachma123")
	require.NoError(t, err)

	account := svc.Verify("admin", "Bachma123")
	require.NotNil(t, account)
	assert.Equal(t, "admin", account.Username)

	assert.Nil(t, svc.Verify("admin", "wrong"))
	assert.Nil(t, svc.Verify("nobody", "Bachma123"))
	assert.Nil(t, svc.Verify("ADMIN", "Bachma123"))
}

func TestUpdatePassword(t *testing.T) {
	setupDB(t)
	svc := AccountService{}
	_, err := svc.Bootstrap("admin", "old")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePassword("admin", "new"))
	assert.Nil(t, svc.Verify("admin", "old"))
	assert.NotNil(t, svc.Verify("admin", "new"))

	assert.ErrorIs(t, svc.UpdatePassword("ghost", "x"), ErrNotFound)
	assert.Error(t, svc.UpdatePassword("admin", ""))
}

func TestEnsureAdminGeneratesPassword(t *testing.T) {
	setupDB(t)
	svc := AccountService{}

	password, err := svc.EnsureAdmin("admin", "")
	require.NoError(t, err)
	assert.Len(t, password, adminPasswordLength)
	assert.NotNil(t, svc.Verify("admin", password))
	assert.Nil(t, svc.Verify("admin", "admin"))

	again, err := svc.EnsureAdmin("admin", "")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.NotNil(t, svc.Verify("admin", password))
}

func TestEnsureAdminKeepsGivenPassword(t *testing.T) {
	setupDB(t)
	svc := AccountService{}

	password, err := svc.EnsureAdmin("admin", "secret")
	require.NoError(t, err)
	assert.Empty(t, password)
	assert.NotNil(t, svc.Verify("admin", "secret"))
}
