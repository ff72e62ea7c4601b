package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	cryptoutil "ems/internal/platform/crypto"
	"ems/internal/platform/email"
	"ems/internal/platform/jobs"
	"ems/internal/platform/validate"
)

const (
	resetTTL    = 2 * time.Hour
	mfaIssuer   = "EMS"
	minPassword = 8
)

// Options are the config values the service needs; the rest stays in config.Config.
type Options struct {
	JWTSecret       string
	SessionTTL      time.Duration
	AllowSelfSignup bool
	PublicBaseURL   string
	EmailFrom       string
}

// Enqueuer runs side effects off the request path. jobs.Service satisfies it.
type Enqueuer interface {
	Enqueue(jobType string, run func(context.Context) (any, error)) bool
}

type Service struct {
	store   StoreAPI
	opts    Options
	crypto  *cryptoutil.Service
	mailer  email.Mailer
	enqueue func(jobType string, run func(context.Context) (any, error))
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store StoreAPI, opts Options, crypto *cryptoutil.Service, mailer email.Mailer, log *zap.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 8 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:  store,
		opts:   opts,
		crypto: crypto,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
	s.enqueue = func(jobType string, run func(context.Context) (any, error)) {
		if _, err := run(context.Background()); err != nil {
			s.log.Warn("inline job failed", zap.String("jobType", jobType), zap.Error(err))
		}
	}
	return s
}

// UseQueue sends reset emails through q instead of delivering them inline.
func (s *Service) UseQueue(q Enqueuer) {
	s.enqueue = func(jobType string, run func(context.Context) (any, error)) {
		if !q.Enqueue(jobType, run) {
			s.log.Warn("reset email dropped", zap.String("jobType", jobType))
		}
	}
}

func (s *Service) checkEmail(address string) error {
	if err := validate.Var(strings.TrimSpace(address), "required,email"); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	return nil
}

// SignIn verifies credentials (and the TOTP code when MFA is on) and opens a session.
func (s *Service) SignIn(ctx context.Context, emailAddr, password, mfaCode string) (Session, error) {
	if err := s.checkEmail(emailAddr); err != nil {
		return Session{}, err
	}
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(emailAddr))
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return Session{}, classify(err)
	}
	if user.Status == UserStatusDisabled {
		return Session{}, newError(CodeUserDisabled, nil)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Session{}, newError(CodeWrongPassword, nil)
	}
	if user.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Session{}, newError(CodeMFARequired, nil)
		}
		if !s.validMFACode(user, mfaCode) {
			return Session{}, newError(CodeInvalidMFACode, nil)
		}
	}
	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user User) (Session, error) {
	sessionID, err := randomToken()
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), s.now().Add(s.opts.SessionTTL)); err != nil {
		return Session{}, classify(err)
	}
	token, err := s.issue(user, sessionID)
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("update last_login failed", zap.String("userId", user.ID), zap.Error(err))
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) issue(user User, sessionID string) (string, error) {
	return GenerateToken(s.opts.JWTSecret, Claims{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		SessionID:   sessionID,
	}, s.opts.SessionTTL)
}

// SignInMethods reports ["password"] for a known account and an empty list otherwise.
func (s *Service) SignInMethods(ctx context.Context, emailAddr string) ([]string, error) {
	if err := s.checkEmail(emailAddr); err != nil {
		return nil, err
	}
	_, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(emailAddr))
	if errors.Is(err, ErrUserNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return []string{SignInMethodPassword}, nil
}

func (s *Service) SignUp(ctx context.Context, displayName, emailAddr, password string) (Session, error) {
	if !s.opts.AllowSelfSignup {
		return Session{}, newError(CodeOperationNotAllowed, nil)
	}
	if err := s.checkEmail(emailAddr); err != nil {
		return Session{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return Session{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	user, err := s.store.CreateUser(ctx, strings.TrimSpace(emailAddr), strings.TrimSpace(displayName), hash, RoleUser)
	if errors.Is(err, ErrEmailTaken) {
		return Session{}, newError(CodeEmailAlreadyInUse, err)
	}
	if err != nil {
		return Session{}, classify(err)
	}
	return s.openSession(ctx, user)
}

// ValidatePassword enforces the password policy used by sign-up and reset.
func ValidatePassword(password string) error {
	if len(password) < minPassword {
		return newError(CodeWeakPassword, nil)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return newError(CodeWeakPassword, nil)
	}
	return nil
}

// RequestPasswordReset never reveals whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if err := s.checkEmail(emailAddr); err != nil {
		return err
	}
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.log.Warn("password reset lookup failed", zap.Error(err))
		}
		return nil
	}
	token, err := randomToken()
	if err != nil {
		s.log.Warn("password reset token generation failed", zap.String("userId", user.ID), zap.Error(err))
		return nil
	}
	if err := s.store.CreatePasswordReset(ctx, user.ID, HashToken(token), s.now().Add(resetTTL)); err != nil {
		s.log.Warn("password reset insert failed", zap.String("userId", user.ID), zap.Error(err))
		return nil
	}

	link := buildResetLink(s.opts.PublicBaseURL, token)
	body := buildResetEmailMessage(link, resetTTL)
	to, from := user.Email, s.opts.EmailFrom
	if s.mailer == nil {
		return nil
	}
	s.enqueue(jobs.JobResetEmail, func(ctx context.Context) (any, error) {
		if err := s.mailer.Send(ctx, from, to, "Reset your password", body); err != nil {
			return nil, err
		}
		return map[string]string{"userId": user.ID}, nil
	})
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return newError(CodeInvalidActionCode, nil)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return newError(CodeInternal, err)
	}
	if _, err := s.store.CompletePasswordReset(ctx, HashToken(token), hash); err != nil {
		if errors.Is(err, ErrResetTokenUnused) {
			return newError(CodeInvalidActionCode, err)
		}
		return classify(err)
	}
	return nil
}

func (s *Service) SignOut(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	if err := s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID)); err != nil {
		return classify(err)
	}
	return nil
}

// Refresh rotates the caller's session and issues a token for the new one.
func (s *Service) Refresh(ctx context.Context, caller UserContext) (Session, error) {
	oldHash := HashToken(caller.SessionID)
	ok, err := s.store.SessionValid(ctx, caller.UserID, oldHash)
	if err != nil {
		return Session{}, classify(err)
	}
	if !ok {
		return Session{}, newError(CodeRequiresRecentLogin, nil)
	}
	user, err := s.store.GetUser(ctx, caller.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return Session{}, classify(err)
	}
	if user.Status == UserStatusDisabled {
		return Session{}, newError(CodeUserDisabled, nil)
	}

	sessionID, err := randomToken()
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := s.store.RotateSession(ctx, user.ID, oldHash, HashToken(sessionID), s.now().Add(s.opts.SessionTTL)); err != nil {
		if errors.Is(err, ErrSessionGone) {
			return Session{}, newError(CodeRequiresRecentLogin, err)
		}
		return Session{}, classify(err)
	}
	token, err := s.issue(user, sessionID)
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) Me(ctx context.Context, caller UserContext) (User, error) {
	user, err := s.store.GetUser(ctx, caller.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return User{}, classify(err)
	}
	return user, nil
}

// SessionActive backs the auth middleware's revocation check.
func (s *Service) SessionActive(ctx context.Context, user UserContext) (bool, error) {
	if user.SessionID == "" {
		return false, nil
	}
	return s.store.SessionValid(ctx, user.UserID, HashToken(user.SessionID))
}

var (
	ErrMFAUnavailable    = errors.New("mfa requires a data encryption key")
	ErrMFAAlreadyEnabled = errors.New("mfa is enabled; disable it with a current code first")
)

// SetupMFA issues a new secret. While MFA is on it is refused, since a new
// secret would switch MFA off without the authenticator.
func (s *Service) SetupMFA(ctx context.Context, caller UserContext) (MFASetup, error) {
	if !s.crypto.Configured() {
		return MFASetup{}, newError(CodeOperationNotAllowed, ErrMFAUnavailable)
	}
	user, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return MFASetup{}, newError(CodeUserNotFound, err)
		}
		return MFASetup{}, classify(err)
	}
	if user.MFAEnabled {
		return MFASetup{}, newError(CodeRequiresRecentLogin, ErrMFAAlreadyEnabled)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: caller.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, newError(CodeInternal, err)
	}
	encrypted, err := s.crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, newError(CodeInternal, err)
	}
	if err := s.store.UpdateMFASecret(ctx, user.ID, encrypted); err != nil {
		if errors.Is(err, ErrMFAAlreadyEnabled) {
			return MFASetup{}, newError(CodeRequiresRecentLogin, err)
		}
		return MFASetup{}, classify(err)
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, caller UserContext, code string) error {
	return s.toggleMFA(ctx, caller, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, caller UserContext, code string) error {
	return s.toggleMFA(ctx, caller, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, caller UserContext, code string, enabled bool) error {
	if !s.crypto.Configured() {
		return newError(CodeOperationNotAllowed, ErrMFAUnavailable)
	}
	user, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return newError(CodeUserNotFound, err)
		}
		return classify(err)
	}
	if !s.validMFACode(user, code) {
		return newError(CodeInvalidMFACode, nil)
	}
	if err := s.store.SetMFAEnabled(ctx, user.ID, enabled); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Service) validMFACode(user User, code string) bool {
	if len(user.MFASecretEnc) == 0 {
		return false
	}
	secret, err := s.crypto.DecryptString(user.MFASecretEnc)
	if err != nil {
		s.log.Warn("mfa secret decrypt failed", zap.String("userId", user.ID), zap.Error(err))
		return false
	}
	return secret != "" && totp.Validate(strings.TrimSpace(code), secret)
}

func buildResetLink(baseURL, token string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return base + "/reset?token=" + url.QueryEscape(token)
}

func buildResetEmailMessage(link string, ttl time.Duration) string {
	hours := int(ttl.Hours())
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("We received a request to reset your password.\n\nOpen this link to choose a new one:\n%s\n\nThe link expires in %d hour(s). If you did not ask for a reset you can ignore this email.\n", link, hours)
}

func randomToken() (string, error) {
	buff := make([]byte, 32)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
