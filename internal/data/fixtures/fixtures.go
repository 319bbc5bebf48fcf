package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type File struct {
	Users    []User    `yaml:"users"`
	Courses  []Course  `yaml:"courses"`
	Payments []Payment `yaml:"payments"`
}

type User struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	Phone       string `yaml:"phone"`
	City        string `yaml:"city"`
	Role        string `yaml:"role"`
	IsStaff     bool   `yaml:"is_staff"`
	IsSuperuser bool   `yaml:"is_superuser"`
	Inactive    bool   `yaml:"inactive"`
}

type Course struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Preview     string   `yaml:"preview"`
	Owner       string   `yaml:"owner"`
	Lessons     []Lesson `yaml:"lessons"`
	Subscribers []string `yaml:"subscribers"`
}

type Lesson struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Preview     string `yaml:"preview"`
	VideoURL    string `yaml:"video_url"`
}

type Payment struct {
	User   string `yaml:"user"`
	Course string `yaml:"course"`
	Lesson string `yaml:"lesson"`
	Amount string `yaml:"amount"`
	Method string `yaml:"payment_method"`
}

type Summary struct {
	Users         int
	Courses       int
	Lessons       int
	Subscriptions int
	Payments      int
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// Apply loads f inside one transaction. Rows that already exist (users by email,
// courses by title, lessons by title within their course) are left untouched, so
// running it twice is a no-op. Summary counts only rows it created.
func Apply(ctx context.Context, db *gorm.DB, baseLog *logger.Logger, f *File) (Summary, error) {
	log := baseLog.With("component", "Fixtures")
	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := map[string]*types.User{}
		for _, uf := range f.Users {
			u, created, err := ensureUser(tx, uf)
			if err != nil {
				return err
			}
			users[u.Email] = u
			if created {
				sum.Users++
			}
		}

		lookupUser := func(email string) (*types.User, error) {
			email = normEmail(email)
			if u, ok := users[email]; ok {
				return u, nil
			}
			var u types.User
			if err := tx.Where("email = ?", email).First(&u).Error; err != nil {
				return nil, fmt.Errorf("user %q: %w", email, err)
			}
			users[email] = &u
			return &u, nil
		}

		courses := map[string]*types.Course{}
		lessons := map[string]*types.Lesson{}
		for _, cf := range f.Courses {
			var owner *uuid.UUID
			if strings.TrimSpace(cf.Owner) != "" {
				u, err := lookupUser(cf.Owner)
				if err != nil {
					return err
				}
				owner = &u.ID
			}
			c, created, err := ensureCourse(tx, cf, owner)
			if err != nil {
				return err
			}
			courses[c.Title] = c
			if created {
				sum.Courses++
			}
			for _, lf := range cf.Lessons {
				l, created, err := ensureLesson(tx, lf, c.ID, owner)
				if err != nil {
					return err
				}
				lessons[l.Title] = l
				if created {
					sum.Lessons++
				}
			}
			for _, email := range cf.Subscribers {
				u, err := lookupUser(email)
				if err != nil {
					return err
				}
				created, err := ensureSubscription(tx, u.ID, c.ID)
				if err != nil {
					return err
				}
				if created {
					sum.Subscriptions++
				}
			}
		}

		for _, pf := range f.Payments {
			u, err := lookupUser(pf.User)
			if err != nil {
				return err
			}
			created, err := ensurePayment(tx, pf, u.ID, courses, lessons)
			if err != nil {
				return err
			}
			if created {
				sum.Payments++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	log.Info("Fixtures applied",
		"users", sum.Users,
		"courses", sum.Courses,
		"lessons", sum.Lessons,
		"subscriptions", sum.Subscriptions,
		"payments", sum.Payments,
	)
	return sum, nil
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ensureUser(tx *gorm.DB, uf User) (*types.User, bool, error) {
	email := normEmail(uf.Email)
	if email == "" {
		return nil, false, fmt.Errorf("fixture user without email")
	}
	var existing types.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup user %q: %w", email, err)
	}

	role := strings.TrimSpace(uf.Role)
	switch role {
	case "":
		role = types.RoleStudent
	case types.RoleStudent, types.RoleModerator:
	default:
		return nil, false, fmt.Errorf("user %q: unknown role %q", email, role)
	}
	password := uf.Password
	if password == "" {
		password = uuid.NewString()
	}
	hashed, err := services.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	u := &types.User{
		Email:       email,
		Password:    hashed,
		FirstName:   strings.TrimSpace(uf.FirstName),
		LastName:    strings.TrimSpace(uf.LastName),
		Phone:       optional(uf.Phone),
		City:        optional(uf.City),
		Role:        role,
		IsActive:    !uf.Inactive,
		IsStaff:     uf.IsStaff,
		IsSuperuser: uf.IsSuperuser,
	}
	if err := tx.Create(u).Error; err != nil {
		return nil, false, fmt.Errorf("create user %q: %w", email, err)
	}
	return u, true, nil
}

func ensureCourse(tx *gorm.DB, cf Course, owner *uuid.UUID) (*types.Course, bool, error) {
	title := strings.TrimSpace(cf.Title)
	if title == "" || strings.TrimSpace(cf.Description) == "" {
		return nil, false, fmt.Errorf("fixture course needs title and description")
	}
	var existing types.Course
	err := tx.Where("title = ?", title).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup course %q: %w", title, err)
	}
	c := &types.Course{
		Title:       title,
		Description: strings.TrimSpace(cf.Description),
		PreviewURL:  optional(cf.Preview),
		OwnerID:     owner,
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, false, fmt.Errorf("create course %q: %w", title, err)
	}
	return c, true, nil
}

func ensureLesson(tx *gorm.DB, lf Lesson, courseID uuid.UUID, owner *uuid.UUID) (*types.Lesson, bool, error) {
	title := strings.TrimSpace(lf.Title)
	if title == "" {
		return nil, false, fmt.Errorf("fixture lesson without title")
	}
	if err := services.ValidateVideoURL(strings.TrimSpace(lf.VideoURL)); err != nil {
		return nil, false, fmt.Errorf("lesson %q: %w", title, err)
	}
	var existing types.Lesson
	err := tx.Where("course_id = ? AND title = ?", courseID, title).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup lesson %q: %w", title, err)
	}
	cid := courseID
	l := &types.Lesson{
		CourseID:    &cid,
		OwnerID:     owner,
		Title:       title,
		Description: strings.TrimSpace(lf.Description),
		PreviewURL:  optional(lf.Preview),
		VideoURL:    strings.TrimSpace(lf.VideoURL),
	}
	if err := tx.Create(l).Error; err != nil {
		return nil, false, fmt.Errorf("create lesson %q: %w", title, err)
	}
	return l, true, nil
}

func ensureSubscription(tx *gorm.DB, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(&types.Subscription{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup subscription: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	sub := &types.Subscription{UserID: userID, CourseID: courseID, IsActive: true}
	if err := tx.Create(sub).Error; err != nil {
		return false, fmt.Errorf("create subscription: %w", err)
	}
	return true, nil
}

func ensurePayment(tx *gorm.DB, pf Payment, userID uuid.UUID, courses map[string]*types.Course, lessons map[string]*types.Lesson) (bool, error) {
	var courseID, lessonID *uuid.UUID
	if t := strings.TrimSpace(pf.Course); t != "" {
		c, ok := courses[t]
		if !ok {
			return false, fmt.Errorf("payment references unknown course %q", t)
		}
		courseID = &c.ID
	}
	if t := strings.TrimSpace(pf.Lesson); t != "" {
		l, ok := lessons[t]
		if !ok {
			return false, fmt.Errorf("payment references unknown lesson %q", t)
		}
		lessonID = &l.ID
	}
	if (courseID == nil) == (lessonID == nil) {
		return false, fmt.Errorf("payment for %s needs exactly one of course or lesson", userID)
	}
	method := strings.ToLower(strings.TrimSpace(pf.Method))
	if !types.ValidPaymentMethod(method) {
		return false, fmt.Errorf("payment method %q is not cash or transfer", pf.Method)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(pf.Amount))
	if err != nil || amount.LessThan(types.MinPaymentAmount) {
		return false, fmt.Errorf("payment amount %q is invalid", pf.Amount)
	}
	amount = amount.Round(2)

	q := tx.Model(&types.Payment{}).Where("user_id = ? AND payment_method = ? AND amount = ?", userID, method, amount)
	if courseID != nil {
		q = q.Where("paid_course_id = ?", *courseID)
	} else {
		q = q.Where("paid_lesson_id = ?", *lessonID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup payment: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	p := &types.Payment{
		UserID:        userID,
		PaidCourseID:  courseID,
		PaidLessonID:  lessonID,
		Amount:        amount,
		PaymentMethod: method,
	}
	if err := tx.Create(p).Error; err != nil {
		return false, fmt.Errorf("create payment: %w", err)
	}
	return true, nil
}
