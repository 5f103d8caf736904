//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"stayhub/cmd/bootstrap"
	"stayhub/cmd/bootstrap/components"
	"stayhub/internal/infra/db"
	"stayhub/internal/infra/gateway"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/shared"
	"stayhub/tests/common/dbtest"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

const (
	pgUser     = "stayhub"
	pgPassword = "stayhub"
	pgPort     = "5432/tcp"
	redisPort  = "6379/tcp"
)

// Containers are shared by every suite in the process; each suite gets its own database.
var (
	containersOnce sync.Once
	containersErr  error
	pgEndpoint     endpoint
	redisEndpoint  endpoint
)

type endpoint struct {
	Host string
	Port nat.Port
}

func (e endpoint) Addr() string {
	return e.Host + ":" + e.Port.Port()
}

func startContainers(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	containersOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		pg, err := runContainer(ctx, testcontainers.ContainerRequest{
			Image:        "postgres:17",
			ExposedPorts: []string{pgPort},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       "postgres",
			},
			Tmpfs: map[string]string{"/var/lib/postgresql/data": "rw,size=256m"},
			Cmd:   []string{"postgres", "-c", "fsync=off", "-c", "synchronous_commit=off", "-c", "max_connections=200"},
			WaitingFor: wait.ForSQL(pgPort, "pgx", func(host string, port nat.Port) string {
				return adminDSN(endpoint{Host: host, Port: port})
			}).WithStartupTimeout(time.Minute),
			Labels: map[string]string{"app": "stayhub-e2e"},
		}, pgPort)
		if err != nil {
			containersErr = fmt.Errorf("postgres: %w", err)
			return
		}
		pgEndpoint = pg

		rd, err := runContainer(ctx, testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{redisPort},
			WaitingFor:   wait.ForListeningPort(redisPort).WithStartupTimeout(30 * time.Second),
			Labels:       map[string]string{"app": "stayhub-e2e"},
		}, redisPort)
		if err != nil {
			containersErr = fmt.Errorf("redis: %w", err)
			return
		}
		redisEndpoint = rd
	})
	require.NoError(t, containersErr, "failed to start containers")
}

// runContainer relies on ryuk to remove the container when the process exits.
func runContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (endpoint, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return endpoint{}, err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return endpoint{}, err
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return endpoint{}, err
	}
	return endpoint{Host: host, Port: mapped}, nil
}

func adminDSN(e endpoint) string {
	return fmt.Sprintf("postgres://%s:%s@%s/postgres?sslmode=disable", pgUser, pgPassword, e.Addr())
}

func createDatabase(t *testing.T) config.DBConfig {
	t.Helper()
	name := "stayhub_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	admin, err := pgxpool.New(ctx, adminDSN(pgEndpoint))
	require.NoError(t, err, "admin connection failed")
	defer admin.Close()

	// A freshly started postgres may still refuse CREATE DATABASE for a moment.
	for attempt := 1; ; attempt++ {
		_, err = admin.Exec(ctx, "CREATE DATABASE "+name)
		if err == nil || attempt == 5 {
			break
		}
		slog.Warn("create database failed, retrying", "database", name, "attempt", attempt, "error", err.Error())
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		admin, err := pgxpool.New(ctx, adminDSN(pgEndpoint))
		if err != nil {
			slog.Warn("cleanup connection failed", "database", name, "error", err.Error())
			return
		}
		defer admin.Close()
		if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			slog.Warn("failed to drop test database", "database", name, "error", err.Error())
		}
	})

	return config.DBConfig{
		Host:     pgEndpoint.Host,
		Port:     pgEndpoint.Port.Port(),
		User:     pgUser,
		Password: pgPassword,
		DBName:   name,
		SSLMode:  "disable",
		TimeZone: "UTC",
	}
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := moduleRoot()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(root, "migrations", "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no migrations found")
	}
	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(file), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// moduleRoot walks up from the package directory `go test` runs in.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// app is the fx graph of cmd/main without the HTTP listener and workers; the
// sandbox gateway is injected so tests can script payment outcomes.
type app struct {
	fx          *fx.App
	Router      *gin.Engine
	Config      config.Config
	Payments    *gateway.SandboxPaymentGateway
	Coordinator *commands.ReservationCoordinator
	Relay       *commands.OutboxRelay
}

func startApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config) *app {
	t.Helper()
	a := &app{Payments: gateway.NewSandboxPaymentGateway()}

	a.fx = fx.New(
		fx.Supply(pool, cfg),
		fx.Provide(func() *gin.Engine { return gin.New() }),
		bootstrap.LoggerModule,
		bootstrap.JWTModule,
		bootstrap.RedisModule,
		bootstrap.KafkaModule,
		components.PersistenceModule,
		fx.Provide(
			func() shared.PaymentGateway { return a.Payments },
			fx.Annotate(gateway.NewLocalPricingResolver, fx.As(new(shared.PricingResolver))),
			components.NewOutboxRelay,
		),
		components.UseCaseModule,
		components.HandlerModule,
		fx.Populate(&a.Router, &a.Config, &a.Coordinator, &a.Relay),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, a.fx.Start(ctx), "failed to start fx app")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.fx.Stop(ctx); err != nil {
			slog.Warn("failed to stop fx app", "error", err.Error())
		}
	})
	return a
}

// SharedSuite boots postgres, redis and the application graph once per suite.
type SharedSuite struct {
	suite.Suite
	Router      *gin.Engine
	DB          *pgxpool.Pool
	Config      config.Config
	Payments    *gateway.SandboxPaymentGateway
	Coordinator *commands.ReservationCoordinator
	Relay       *commands.OutboxRelay
}

func (s *SharedSuite) SetupSuite() {
	t := s.T()
	startContainers(t)

	cfg := config.NewTestConfig()
	cfg.DB = createDatabase(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = redisEndpoint.Addr()

	pool, closeDB, err := db.Connect(cfg.DB)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(closeDB)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, migrate(ctx, pool), "migration failed")

	a := startApp(t, pool, cfg)
	s.DB = pool
	s.Router = a.Router
	s.Config = a.Config
	s.Payments = a.Payments
	s.Coordinator = a.Coordinator
	s.Relay = a.Relay
}

func (s *SharedSuite) SetupSubTest() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "failed to reset database")
}
