package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/model"
)

var (
	ErrPasswordTooShort    = wrapKind(model.ErrValidation, "password is too short")
	ErrInvalidCredentials  = wrapKind(model.ErrAuthRequired, "invalid email or password")
	ErrEmailNotVerified    = wrapKind(model.ErrAuthRequired, "email address is not verified")
	ErrInvalidVerification = wrapKind(model.ErrNotFound, "verification link is invalid or already used")
)

const (
	minPasswordLength = 6
	sessionTTL        = 30 * 24 * time.Hour
)

type AuthConfig struct {
	StoreName string
	// VerifyURL is the public address of the verification endpoint.
	VerifyURL string
	MailFrom  string
}

type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*model.User, error)
	Verify(ctx context.Context, token string) error
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
	// Identify resolves a session token; it returns nil without error for an
	// unknown or expired token.
	Identify(ctx context.Context, token string) (*model.Identity, error)
	GrantAdmin(ctx context.Context, email string) error
}

func NewAuthService(
	cfg AuthConfig,
	users model.UserRepository,
	sessions model.SessionRepository,
	passManager model.PasswordManager,
	mailer model.Mailer,
	dispatcher EventDispatcher,
) AuthService {
	return &authService{
		cfg:         cfg,
		users:       users,
		sessions:    sessions,
		passManager: passManager,
		mailer:      mailer,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
}

type authService struct {
	cfg         AuthConfig
	users       model.UserRepository
	sessions    model.SessionRepository
	passManager model.PasswordManager
	mailer      model.Mailer
	dispatcher  EventDispatcher
	now         func() time.Time
}

func (s *authService) SignUp(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" {
		return nil, requiredField("email")
	}
	if displayName == "" {
		return nil, requiredField("name")
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return s.resendVerification(ctx, existing, password)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}

	hashedPassword, err := s.passManager.Hash(password)
	if err != nil {
		return nil, err
	}
	userID, err := s.users.NextID()
	if err != nil {
		return nil, err
	}
	verificationToken, err := randomToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		ID:                userID,
		Email:             email,
		HashedPassword:    hashedPassword,
		DisplayName:       displayName,
		Status:            model.PendingVerification,
		VerificationToken: verificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return nil, err
	}

	dispatch(s.dispatcher, model.UserRegistered{UserID: userID, Email: email})
	return user, nil
}

// resendVerification lets a sign-up whose verification mail never arrived be
// repeated with the same password. It issues a fresh token.
func (s *authService) resendVerification(ctx context.Context, user *model.User, password string) (*model.User, error) {
	if user.Status != model.PendingVerification {
		return nil, model.ErrEmailTaken
	}
	ok, err := s.passManager.Check(user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrEmailTaken
	}

	user.VerificationToken, err = randomToken()
	if err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	if err := s.sendVerification(ctx, user); err != nil {
		return nil, err
	}

	dispatch(s.dispatcher, model.UserRegistered{UserID: user.ID, Email: user.Email})
	return user, nil
}

func (s *authService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerification
	}
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrInvalidVerification
		}
		return model.WithKind(model.ErrDataAccess, err)
	}

	user.Status = model.Active
	user.VerificationToken = ""
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return model.WithKind(model.ErrDataAccess, err)
	}
	return nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	ok, err := s.passManager.Check(user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if user.Status != model.Active {
		return nil, ErrEmailNotVerified
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return session, nil
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.WithKind(model.ErrDataAccess, err)
	}
	return nil
}

func (s *authService) Identify(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessions.Find(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	if !session.ExpiresAt.After(s.now()) {
		return nil, nil
	}

	user, err := s.users.Find(ctx, session.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WithKind(model.ErrDataAccess, err)
	}
	return &model.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
	}, nil
}

func (s *authService) GrantAdmin(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return storeError(err)
	}
	if err := s.users.SetAdmin(ctx, user.ID, true); err != nil {
		return model.WithKind(model.ErrDataAccess, err)
	}
	return nil
}

func (s *authService) sendVerification(ctx context.Context, user *model.User) error {
	link := s.cfg.VerifyURL + "?token=" + url.QueryEscape(user.VerificationToken)
	if s.mailer == nil {
		log.WithFields(log.Fields{"email": user.Email, "link": link}).Warn("mailer is not configured, verification link not sent")
		return nil
	}
	err := s.mailer.Send(ctx, model.Mail{
		From:    s.cfg.MailFrom,
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Confirm your %s account", s.cfg.StoreName),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Please confirm your email address: <a href="%s">%s</a></p>`,
			html.EscapeString(user.DisplayName), link, link),
	})
	return errors.Wrap(err, "send verification email")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	return hex.EncodeToString(buf), nil
}
