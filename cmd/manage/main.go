package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/app"
	"github.com/yungbote/coursehub-backend/internal/data/db"
	"github.com/yungbote/coursehub-backend/internal/data/fixtures"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type command struct {
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"create-db":        {"create the configured database if it does not exist", createDB},
	"migrate":          {"auto-migrate every table", migrate},
	"seed":             {"-file fixtures.yaml: load users, courses, lessons and payments", seed},
	"grant-moderator":  {"-email addr: give a user the moderator role", grantModerator},
	"create-superuser": {"-email addr -password pw: create a staff superuser", createSuperuser},
	"sweep-inactive":   {"deactivate users inactive for INACTIVE_AFTER", sweepInactive},
	"notify-course":    {"-course id: email the course's subscribers now", notifyCourse},
}

type env struct {
	cfg app.Config
	log *logger.Logger
	db  *gorm.DB
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: manage <command> [flags]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-17s %s\n", name, commands[name].usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, log: log.With("command", os.Args[1])}
	if err := cmd.run(ctx, e, os.Args[2:]); err != nil {
		e.log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// open connects to the configured database.
func (e *env) open() (*gorm.DB, func(), error) {
	pg, err := db.NewPostgresService(e.log, e.cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return pg.DB(), func() { _ = pg.Close() }, nil
}

func createDB(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("create-db", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, err := db.EnsureDatabase(ctx, e.log, e.cfg.Postgres)
	return err
}

func migrate(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pg, err := db.NewPostgresService(e.log, e.cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	return pg.AutoMigrateAll()
}

func seed(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := fs.String("file", "scripts/fixtures.yaml", "fixtures file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fh, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open fixtures: %w", err)
	}
	defer fh.Close()
	f, err := fixtures.Parse(fh)
	if err != nil {
		return err
	}

	gdb, closeDB, err := e.open()
	if err != nil {
		return err
	}
	defer closeDB()
	sum, err := fixtures.Apply(ctx, gdb, e.log, f)
	if err != nil {
		return err
	}
	fmt.Printf("created users=%d courses=%d lessons=%d subscriptions=%d payments=%d\n",
		sum.Users, sum.Courses, sum.Lessons, sum.Subscriptions, sum.Payments)
	return nil
}

func grantModerator(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("grant-moderator", flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("-email is required")
	}
	gdb, closeDB, err := e.open()
	if err != nil {
		return err
	}
	defer closeDB()

	res := gdb.WithContext(ctx).Model(&types.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(*email))).
		Updates(map[string]interface{}{"role": types.RoleModerator, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no user with email %q", *email)
	}
	e.log.Info("Moderator role granted", "email", *email)
	return nil
}

func createSuperuser(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("create-superuser", flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "user password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		return fmt.Errorf("-email and -password are required")
	}
	gdb, closeDB, err := e.open()
	if err != nil {
		return err
	}
	defer closeDB()

	sum, err := fixtures.Apply(ctx, gdb, e.log, &fixtures.File{Users: []fixtures.User{{
		Email:       *email,
		Password:    *password,
		Role:        types.RoleModerator,
		IsStaff:     true,
		IsSuperuser: true,
	}}})
	if err != nil {
		return err
	}
	if sum.Users == 0 {
		return fmt.Errorf("user %q already exists", *email)
	}
	return nil
}

func sweepInactive(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("sweep-inactive", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	gdb, closeDB, err := e.open()
	if err != nil {
		return err
	}
	defer closeDB()

	svc := services.NewInactivityService(e.log, repos.NewUserRepo(gdb, e.log), e.cfg.InactiveAfter)
	n, err := svc.DeactivateInactiveUsers(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("deactivated %d users\n", n)
	return nil
}

func notifyCourse(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("notify-course", flag.ContinueOnError)
	course := fs.String("course", "", "course id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	courseID, err := uuid.Parse(strings.TrimSpace(*course))
	if err != nil {
		return fmt.Errorf("-course must be a uuid: %w", err)
	}
	gdb, closeDB, err := e.open()
	if err != nil {
		return err
	}
	defer closeDB()

	mailCfg := sendgrid.ConfigFromEnv()
	var mail sendgrid.Client = sendgrid.NewLogClient(e.log, mailCfg)
	if strings.TrimSpace(mailCfg.APIKey) != "" {
		if mail, err = sendgrid.New(e.log, mailCfg); err != nil {
			return err
		}
	}
	jobRepo := repos.NewJobRunRepo(gdb, e.log)
	ns := services.NewNotificationService(
		e.log,
		repos.NewCourseRepo(gdb, e.log),
		repos.NewSubscriptionRepo(gdb, e.log),
		services.NewJobService(gdb, e.log, jobRepo, nil, ""),
		mail,
		services.NotificationConfig{Debounce: e.cfg.NotifyDebounce, Concurrency: e.cfg.NotifyConcurrency},
	)
	res, err := ns.NotifyCourseSubscribers(ctx, courseID, time.Now().UTC())
	if err != nil {
		return err
	}
	if res.Skipped != "" {
		fmt.Printf("skipped: %s\n", res.Skipped)
		return nil
	}
	fmt.Printf("sent %d emails\n", res.Sent)
	return nil
}
