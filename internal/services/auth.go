package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type JWTClaims struct {
	Role      string `json:"role"`
	Staff     bool   `json:"staff,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
	AvatarURL *string
}

type AuthService interface {
	RegisterUser(dbc dbctx.Context, in RegisterInput) (*types.User, *TokenPair, error)
	LoginUser(dbc dbctx.Context, email, password string) (*TokenPair, error)
	RefreshUser(dbc dbctx.Context) (*TokenPair, error)
	LogoutUser(dbc dbctx.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var errBadCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("No active account found with the given credentials"))

// HashPassword bcrypt-hashes raw with the default cost.
func HashPassword(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (as *authService) RegisterUser(dbc dbctx.Context, in RegisterInput) (*types.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, nil, apierr.Validation("email", "This field is required.")
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, nil, apierr.Validation("password", "This field is required.")
	}
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &types.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     in.Phone,
		City:      in.City,
		AvatarURL: in.AvatarURL,
		Role:      types.RoleStudent,
		IsActive:  true,
	}

	var pair *TokenPair
	err = as.inTx(dbc, func(inner dbctx.Context) error {
		exists, err := as.userRepo.EmailExists(inner, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return apierr.Validation("email", "user with this email already exists.")
		}
		if _, err := as.userRepo.Create(inner, []*types.User{user}); err != nil {
			if repoerr.IsUniqueViolation(err) {
				return apierr.Validation("email", "user with this email already exists.")
			}
			return fmt.Errorf("create user: %w", err)
		}
		p, err := as.issue(inner, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	as.log.Info("User registered", "user_id", user.ID)
	return user, pair, nil
}

func (as *authService) LoginUser(dbc dbctx.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	var pair *TokenPair
	err := as.inTx(dbc, func(inner dbctx.Context) error {
		user, err := as.userRepo.GetByEmail(inner, email)
		if err != nil {
			return fmt.Errorf("get user by email: %w", err)
		}
		if user == nil || !user.IsActive {
			return errBadCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return errBadCredentials
		}
		if err := as.purgeExpired(inner, user.ID); err != nil {
			return err
		}
		p, err := as.issue(inner, user)
		if err != nil {
			return err
		}
		if err := as.userRepo.TouchLastLogin(inner, user.ID, as.now()); err != nil {
			return fmt.Errorf("touch last login: %w", err)
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) RefreshUser(dbc dbctx.Context) (*TokenPair, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.RefreshToken == "" {
		as.log.Warn("Refresh token missing from request data")
		return nil, errUnauthenticated
	}

	var pair *TokenPair
	err := as.inTx(dbc, func(inner dbctx.Context) error {
		found, err := as.userTokenRepo.GetByRefreshTokens(inner, []string{rd.RefreshToken})
		if err != nil {
			return fmt.Errorf("get refresh token: %w", err)
		}
		if len(found) == 0 || found[0] == nil {
			return apierr.New(http.StatusUnauthorized, "token_not_valid", errors.New("Token is invalid or expired"))
		}
		existing := found[0]
		if existing.ExpiresAt.Before(as.now()) {
			if err := as.userTokenRepo.DeleteByIDs(inner, []uuid.UUID{existing.ID}); err != nil {
				return fmt.Errorf("delete expired token: %w", err)
			}
			return apierr.New(http.StatusUnauthorized, "token_not_valid", errors.New("Token is invalid or expired"))
		}
		user, err := as.userRepo.GetByID(inner, existing.UserID)
		if err != nil {
			return fmt.Errorf("load user for refresh: %w", err)
		}
		if user == nil || !user.IsActive {
			return errBadCredentials
		}
		p, err := as.issue(inner, user)
		if err != nil {
			return err
		}
		if err := as.userTokenRepo.DeleteByIDs(inner, []uuid.UUID{existing.ID}); err != nil {
			return fmt.Errorf("remove old refresh token: %w", err)
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) LogoutUser(dbc dbctx.Context) error {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.TokenString == "" {
		return errUnauthenticated
	}
	return as.inTx(dbc, func(inner dbctx.Context) error {
		found, err := as.userTokenRepo.GetByAccessTokens(inner, []string{rd.TokenString})
		if err != nil {
			return fmt.Errorf("find user token: %w", err)
		}
		if len(found) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(found))
		for _, t := range found {
			ids = append(ids, t.ID)
		}
		return as.userTokenRepo.DeleteByIDs(inner, ids)
	})
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{tokenString})
	if err != nil {
		as.log.Warn("Error fetching user token by access token", "error", err)
		return ctx, fmt.Errorf("fetch user token: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return ctx, fmt.Errorf("token revoked")
	}
	rd := &ctxutil.RequestData{
		TokenString:  tokenString,
		RefreshToken: found[0].RefreshToken,
		UserID:       userID,
		Role:         claims.Role,
		IsStaff:      claims.Staff,
		IsSuperuser:  claims.Superuser,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }

func (as *authService) issue(dbc dbctx.Context, user *types.User) (*TokenPair, error) {
	now := as.now()
	access, err := as.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	tok := &types.UserToken{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    now.Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{tok}); err != nil {
		as.log.Warn("Create user token failed", "error", err)
		return nil, fmt.Errorf("create user token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    int(as.accessTTL.Seconds()),
	}, nil
}

func (as *authService) generateAccessToken(user *types.User, now time.Time) (string, error) {
	claims := JWTClaims{
		Role:      user.Role,
		Staff:     user.IsStaff,
		Superuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) purgeExpired(dbc dbctx.Context, userID uuid.UUID) error {
	tokens, err := as.userTokenRepo.GetByUserIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("check user tokens: %w", err)
	}
	now := as.now()
	var expired []uuid.UUID
	for _, t := range tokens {
		if t != nil && t.ExpiresAt.Before(now) {
			expired = append(expired, t.ID)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	return as.userTokenRepo.DeleteByIDs(dbc, expired)
}

func (as *authService) inTx(dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	return runInTx(as.db, dbc, fn)
}

// runInTx reuses dbc.Tx when the caller already holds a transaction.
func runInTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(ctxutil.Default(dbc.Ctx)).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
