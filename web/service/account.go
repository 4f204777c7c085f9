package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thucvatbm/species-catalog/database"
	"github.com/thucvatbm/species-catalog/database/model"
	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/util/crypto"
	"github.com/thucvatbm/species-catalog/util/random"
)

const adminPasswordLength = 16

// AccountService is the credential store of the catalog administrators.
type AccountService struct{}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// timingHash returns a bcrypt hash used to keep unknown usernames as slow as
// wrong passwords.
func timingHash() string {
	dummyHashOnce.Do(func() {
		h, err := crypto.HashPasswordAsBcrypt(random.Seq(32))
		if err != nil {
			logger.Warning("generate timing hash err:", err)
			return
		}
		dummyHash = h
	})
	return dummyHash
}

// Verify returns the account when username exists and password matches its
// hash. Any mismatch yields nil so callers cannot tell the two cases apart.
func (s *AccountService) Verify(username string, password string) *model.Account {
	db := database.GetDB()

	account := &model.Account{}
	err := db.Model(model.Account{}).
		Where("username = ?", username).
		First(account).
		Error
	if database.IsNotFound(err) {
		crypto.CheckPasswordHash(timingHash(), password)
		return nil
	} else if err != nil {
		logger.Warning("check account err:", err)
		return nil
	}

	if !crypto.CheckPasswordHash(account.PasswordHash, password) {
		return nil
	}
	return account
}

// Bootstrap creates the account unless one with that username already exists.
// An existing account is left untouched, including its password.
func (s *AccountService) Bootstrap(username string, password string) (bool, error) {
	if username == "" {
		return false, errors.New("username can not be empty")
	} else if password == "" {
		return false, errors.New("password can not be empty")
	}

	db := database.GetDB()
	var count int64
	if err := db.Model(model.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return false, err
	}
	account := &model.Account{Username: username, PasswordHash: hash}
	if err := db.Create(account).Error; err != nil {
		return false, err
	}
	logger.Infof("created administrator account %q", username)
	return true, nil
}

// EnsureAdmin bootstraps the administrator. When password is empty a random
// one is generated; it is returned only if the account was created with it,
// since it is never stored in clear.
func (s *AccountService) EnsureAdmin(username string, password string) (string, error) {
	generated := ""
	if password == "" {
		generated = random.Seq(adminPasswordLength)
		password = generated
	}
	created, err := s.Bootstrap(username, password)
	if err != nil || !created {
		return "", err
	}
	return generated, nil
}

// UpdatePassword replaces the password hash of an existing account.
func (s *AccountService) UpdatePassword(username string, password string) error {
	if password == "" {
		return errors.New("password can not be empty")
	}
	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return err
	}

	res := database.GetDB().Model(model.Account{}).
		Where("username = ?", username).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %q: %w", username, ErrNotFound)
	}
	return nil
}

func (s *AccountService) GetFirst() (*model.Account, error) {
	account := &model.Account{}
	err := database.GetDB().Model(model.Account{}).Order("id").First(account).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}
