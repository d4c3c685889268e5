// Package credentials owns the user-account table: registration
// validation, password hashing, and authentication.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ashureev/emotext/internal/domain"
	"github.com/ashureev/emotext/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordLength is the required raw password length.
const PasswordLength = 8

var (
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidName           = errors.New("names must contain only letters")
	ErrInvalidPasswordLength = fmt.Errorf("password must be exactly %d characters long", PasswordLength)
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidAge            = errors.New("age must be between 0 and 120")
	ErrInvalidGender         = errors.New("gender must be Male, Female or Other")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

// RegistrationForm carries the fields collected by the registration view.
type RegistrationForm struct {
	Username        string        `json:"username"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Age             int           `json:"age"`
	Gender          domain.Gender `json:"gender"`
	Email           string        `json:"email"`
	Password        string        `json:"password"`
	ConfirmPassword string        `json:"confirm_password"`
}

// Store verifies and persists user credentials.
type Store struct {
	repo        store.Repository
	emailDomain string
	now         func() time.Time
}

// New creates a credential store. emailDomain is the required email
// suffix, e.g. "@gmail.com".
func New(repo store.Repository, emailDomain string) *Store {
	return &Store{repo: repo, emailDomain: emailDomain, now: time.Now}
}

// Register validates the form, hashes the password and inserts the
// account. Validation failures are reported before storage is touched.
func (s *Store) Register(ctx context.Context, form RegistrationForm) (*domain.Account, error) {
	if err := s.validate(form); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     form.Username,
		PasswordHash: string(hash),
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Age:          form.Age,
		Gender:       form.Gender,
		Email:        form.Email,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *Store) validate(form RegistrationForm) error {
	if !strings.HasSuffix(form.Email, s.emailDomain) {
		return ErrInvalidEmail
	}
	if !isAlphabetic(form.FirstName) || !isAlphabetic(form.LastName) {
		return ErrInvalidName
	}
	if len(form.Password) != PasswordLength {
		return ErrInvalidPasswordLength
	}
	if form.Password != form.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if form.Age < 0 || form.Age > 120 {
		return ErrInvalidAge
	}
	if !domain.ValidGender(form.Gender) {
		return ErrInvalidGender
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the
// matching account. The password length is checked before storage is
// ever consulted.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	if len(password) != PasswordLength {
		return nil, ErrInvalidPasswordLength
	}

	account, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// ListAll returns every registered account, password hashes included.
// Only the admin user-data view consumes this.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func isAlphabetic(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
