package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/krishkalaria12/cropcare/session"
	"github.com/krishkalaria12/cropcare/ttlstore"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	Audience          = "cropcare-app"
	MinPasswordLength = 6
	bcryptCost        = 10
	revokedKey        = "auth:revoked:"
)

var (
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized, "Invalid email or password", nil)
	ErrEmailTaken         = apperr.New(http.StatusConflict, "An account with this email already exists", nil)
	ErrInvalidToken       = errors.New("invalid token")
)

type Options struct {
	Secret         string
	Issuer         string
	URL            string
	TokenDuration  time.Duration
	CookieDuration time.Duration
	AvatarDir      string
	// Revoked remembers signed-out token ids until they would have expired anyway.
	Revoked ttlstore.Store
}

// Service is the identity provider: accounts live in the profiles table, sessions are JWTs.
type Service struct {
	db       *gorm.DB
	tokens   *auth.Service
	revoked  ttlstore.Store
	sessions *session.Provider
	log      *logger.Logger
	ttl      time.Duration
	now      func() time.Time
}

type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func NewService(db *gorm.DB, sessions *session.Provider, log *logger.Logger, opts Options) *Service {
	if opts.TokenDuration == 0 {
		opts.TokenDuration = 24 * time.Hour
	}
	if opts.CookieDuration == 0 {
		opts.CookieDuration = 7 * 24 * time.Hour
	}
	if opts.Issuer == "" {
		opts.Issuer = Audience
	}
	if opts.AvatarDir == "" {
		opts.AvatarDir = "/tmp/avatars"
	}
	if opts.Revoked == nil {
		opts.Revoked = ttlstore.NewMemory()
	}

	secret := opts.Secret
	tokens := auth.NewService(auth.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  opts.TokenDuration,
		CookieDuration: opts.CookieDuration,
		Issuer:         opts.Issuer,
		URL:            opts.URL,
		AvatarStore:    avatar.NewLocalFS(opts.AvatarDir),
	})

	s := &Service{
		db:       db,
		tokens:   tokens,
		revoked:  opts.Revoked,
		sessions: sessions,
		log:      log.With("service", "AuthService"),
		ttl:      opts.TokenDuration,
		now:      time.Now,
	}

	tokens.AddDirectProvider("local", provider.CredCheckerFunc(func(identity, password string) (bool, error) {
		u, err := s.checkCredentials(context.Background(), identity, password)
		return u != nil, err
	}))

	return s
}

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name"`
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if !isEmail(email) {
		return nil, apperr.BadRequest("A valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.BadRequest(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Failed to hash password", err)
	}

	user := models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
	}

	// the unique email index settles concurrent sign-ups
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.New(http.StatusInternalServerError, "Failed to create account", err)
	}

	s.log.Info("Account created", "user_id", user.ID, "email", user.Email)
	return s.startSession(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Database error", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(*user)
}

// SignOut revokes tokenStr and announces the sign-out. The token is rejected from then on.
func (s *Service) SignOut(ctx context.Context, tokenStr string) error {
	claims, identity, err := s.parse(tokenStr)
	if err != nil {
		return err
	}
	if err := s.isRevoked(ctx, claims.ID); err != nil {
		return err
	}

	ttl := s.ttl
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left > 0 {
			ttl = left
		}
	}
	if err := s.revoked.Set(ctx, revokedKey+claims.ID, ttl); err != nil {
		return apperr.New(http.StatusInternalServerError, "Failed to sign out", err)
	}

	s.sessions.Publish(session.Event{Kind: session.SignedOut, Identity: identity})
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// ParseToken validates tokenStr and returns the identity it was issued for. Signed-out tokens are rejected.
func (s *Service) ParseToken(ctx context.Context, tokenStr string) (session.Identity, error) {
	claims, identity, err := s.parse(tokenStr)
	if err != nil {
		return session.Identity{}, err
	}
	if err := s.isRevoked(ctx, claims.ID); err != nil {
		return session.Identity{}, err
	}
	return identity, nil
}

func (s *Service) parse(tokenStr string) (token.Claims, session.Identity, error) {
	claims, err := s.tokens.TokenService().Parse(tokenStr)
	if err != nil {
		return token.Claims{}, session.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.User == nil || claims.ID == "" {
		return token.Claims{}, session.Identity{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.User.ID)
	if err != nil {
		return token.Claims{}, session.Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, session.Identity{UserID: id, Email: claims.User.Email, Name: claims.User.Name}, nil
}

// isRevoked fails closed when the revocation store cannot be reached.
func (s *Service) isRevoked(ctx context.Context, jti string) error {
	revoked, err := s.revoked.Has(ctx, revokedKey+jti)
	if err != nil {
		s.log.Warn("Revocation lookup failed", "error", err)
		return fmt.Errorf("%w: revocation lookup: %v", ErrInvalidToken, err)
	}
	if revoked {
		return fmt.Errorf("%w: signed out", ErrInvalidToken)
	}
	return nil
}

func (s *Service) startSession(user models.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	tu := token.User{
		ID:    user.ID.String(),
		Name:  user.DisplayName,
		Email: user.Email,
	}
	claims := token.Claims{
		User: &tu,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.tokens.TokenService().Issuer,
			Audience:  []string{Audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenStr, err := s.tokens.TokenService().Token(claims)
	if err != nil {
		return nil, apperr.New(http.StatusInternalServerError, "Failed to generate token", err)
	}

	s.sessions.Publish(session.Event{
		Kind:     session.SignedIn,
		Identity: session.Identity{UserID: user.ID, Email: user.Email, Name: user.DisplayName},
	})

	return &Session{User: user, Token: tokenStr, ExpiresAt: expires}, nil
}

// checkCredentials returns (nil, nil) for an unknown email or wrong password.
func (s *Service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !checkPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	return &user, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hashed), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isEmail(identity string) bool {
	addr, err := mail.ParseAddress(identity)
	return err == nil && addr.Address == identity
}
