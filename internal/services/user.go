package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/cache"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
)

// PublicUser is what any authenticated caller may see about another user.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone"`
	City      *string   `json:"city"`
	AvatarURL *string   `json:"avatar"`
}

// PrivateUser is the self view, including payment history.
type PrivateUser struct {
	PublicUser
	Role       string           `json:"role"`
	IsActive   bool             `json:"is_active"`
	LastLogin  *time.Time       `json:"last_login"`
	DateJoined time.Time        `json:"date_joined"`
	Payments   []*types.Payment `json:"payments"`
}

func NewPublicUser(u *types.User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		City:      u.City,
		AvatarURL: u.AvatarURL,
	}
}

type UserUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Phone     *string
	City      *string
	AvatarURL *string
}

type UserService interface {
	GetMe(dbc dbctx.Context) (*PrivateUser, error)
	List(dbc dbctx.Context, page pagination.Page) ([]PublicUser, int64, error)
	// Get returns *PrivateUser for the caller's own id and *PublicUser otherwise.
	Get(dbc dbctx.Context, userID uuid.UUID) (any, error)
	Update(dbc dbctx.Context, userID uuid.UUID, in UserUpdate) (*PrivateUser, error)
	Delete(dbc dbctx.Context, userID uuid.UUID) error
}

type userService struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    repos.UserRepo
	paymentRepo repos.PaymentRepo
	courseCache cache.CourseCache
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	paymentRepo repos.PaymentRepo,
	courseCache cache.CourseCache,
) UserService {
	serviceLog := log.With("service", "UserService")
	if courseCache == nil {
		courseCache = cache.NewCourseCache(serviceLog, nil, 0)
	}
	return &userService{
		db:          db,
		log:         serviceLog,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		courseCache: courseCache,
	}
}

var errUserNotFound = apierr.NotFound("not_found", "No User matches the given query.")

func (us *userService) GetMe(dbc dbctx.Context) (*PrivateUser, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	return us.private(dbc, caller.UserID)
}

func (us *userService) List(dbc dbctx.Context, page pagination.Page) ([]PublicUser, int64, error) {
	if _, err := requireCaller(dbc.Ctx); err != nil {
		return nil, 0, err
	}
	rows, total, err := us.userRepo.List(dbc, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if err := pagination.CheckRange(page, total); err != nil {
		return nil, 0, err
	}
	out := make([]PublicUser, 0, len(rows))
	for _, u := range rows {
		out = append(out, NewPublicUser(u))
	}
	return out, total, nil
}

func (us *userService) Get(dbc dbctx.Context, userID uuid.UUID) (any, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if caller.UserID == userID {
		return us.private(dbc, userID)
	}
	u, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errUserNotFound
	}
	pub := NewPublicUser(u)
	return &pub, nil
}

func (us *userService) Update(dbc dbctx.Context, userID uuid.UUID, in UserUpdate) (*PrivateUser, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	u, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errUserNotFound
	}
	if caller.UserID != u.ID {
		return nil, apierr.Forbidden("You can only edit your own profile.")
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, apierr.Validation("email", "This field may not be blank.")
		}
		if email != u.Email {
			exists, err := us.userRepo.EmailExists(dbc, email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if exists {
				return nil, apierr.Validation("email", "user with this email already exists.")
			}
			updates["email"] = email
		}
	}
	if in.Password != nil {
		if strings.TrimSpace(*in.Password) == "" {
			return nil, apierr.Validation("password", "This field may not be blank.")
		}
		hashed, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		updates["phone"] = nullableString(*in.Phone)
	}
	if in.City != nil {
		updates["city"] = nullableString(*in.City)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = nullableString(*in.AvatarURL)
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		if err := us.userRepo.UpdateFields(dbc, u.ID, updates); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return us.private(dbc, u.ID)
}

func (us *userService) Delete(dbc dbctx.Context, userID uuid.UUID) error {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return err
	}
	if !IsAdmin(caller) {
		return errNoPermission
	}
	var orphaned []uuid.UUID
	err = runInTx(us.db, dbc, func(inner dbctx.Context) error {
		u, err := us.userRepo.GetByID(inner, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if u == nil {
			return errUserNotFound
		}
		if orphaned, err = us.userRepo.Delete(inner, u.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Cached course details embed the owner.
	us.courseCache.Invalidate(dbc.Ctx, orphaned...)
	us.log.Info("User deleted", "user_id", userID, "actor_id", caller.UserID, "orphaned_courses", len(orphaned))
	return nil
}

func (us *userService) private(dbc dbctx.Context, userID uuid.UUID) (*PrivateUser, error) {
	u, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errUserNotFound
	}
	payments, err := us.paymentRepo.List(dbc, repos.PaymentFilter{UserID: &u.ID})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []*types.Payment{}
	}
	return &PrivateUser{
		PublicUser: NewPublicUser(u),
		Role:       u.Role,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		DateJoined: u.DateJoined,
		Payments:   payments,
	}, nil
}

func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IsNotFound reports whether err is a 404 service error.
func IsNotFound(err error) bool {
	var ae *apierr.Error
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}
