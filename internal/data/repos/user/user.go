package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	List(dbc dbctx.Context, offset, limit int) ([]*types.User, int64, error)
	UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error
	TouchLastLogin(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	SetRoleByEmail(dbc dbctx.Context, email, role string) (bool, error)
	DeactivateInactive(dbc dbctx.Context, lastLoginBefore time.Time) (int64, error)
	// Delete returns the ids of courses whose owner was cleared.
	Delete(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	for _, u := range users {
		u.Email = normalizeEmail(u.Email)
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var u types.User
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", userID).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (ur *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var u types.User
	if err := transaction.WithContext(dbc.Ctx).Where("email = ?", email).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (ur *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.User, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var total int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.User
	if err := transaction.WithContext(dbc.Ctx).
		Order("date_joined ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (ur *userRepo) UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if userID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if v, ok := updates["email"].(string); ok {
		updates["email"] = normalizeEmail(v)
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (ur *userRepo) TouchLastLogin(dbc dbctx.Context, userID uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login", at.UTC()).Error
}

func (ur *userRepo) SetRoleByEmail(dbc dbctx.Context, email, role string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("email = ?", normalizeEmail(email)).
		Update("role", role)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeactivateInactive flips is_active for every active, non-staff, non-superuser account whose
// last login is older than lastLoginBefore, in a single statement.
func (ur *userRepo) DeactivateInactive(dbc dbctx.Context, lastLoginBefore time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("last_login < ? AND is_active = ? AND is_staff = ? AND is_superuser = ?",
			lastLoginBefore.UTC(), true, false, false,
		).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Delete removes the user. Owned courses and lessons are kept with their owner cleared;
// tokens, subscriptions and payments go with the account.
func (ur *userRepo) Delete(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var orphaned []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.Course{}).Where("owner_id = ?", userID).Pluck("id", &orphaned).Error; err != nil {
			return err
		}
		if len(orphaned) > 0 {
			if err := txx.Model(&types.Course{}).Where("id IN ?", orphaned).UpdateColumn("owner_id", nil).Error; err != nil {
				return err
			}
		}
		if err := txx.Model(&types.Lesson{}).Where("owner_id = ?", userID).UpdateColumn("owner_id", nil).Error; err != nil {
			return err
		}
		for _, model := range []any{&types.UserToken{}, &types.Subscription{}, &types.Payment{}} {
			if err := txx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return txx.Where("id = ?", userID).Delete(&types.User{}).Error
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}
