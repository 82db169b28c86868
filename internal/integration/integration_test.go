package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"codeconnect/internal/app"
	"codeconnect/internal/domain"
	"codeconnect/internal/infra/memory"
	pgblob "codeconnect/internal/infra/postgres"
	pgmigrations "codeconnect/internal/infra/postgres/migrations"
	redisblob "codeconnect/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestPlatformEndToEndOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	migrateBlobs(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	blobs := memory.NewBlobCache(pgblob.NewBlobStore(pool), 5*time.Minute)

	auth, err := app.NewAuthService(ctx, blobs)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	store, err := app.NewStoreService(ctx, blobs, auth, app.WithReplyDelay(time.Hour))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()

	alice, err := auth.Login(ctx, "Alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := store.AddQuizScore(ctx, "Python Basics", 85); err != nil {
		t.Fatalf("add score: %v", err)
	}
	request, err := store.SendFriendRequest(ctx, "u2", "Bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := store.AcceptFriendRequest(ctx, request.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// A fresh session straight off Postgres (no warm cache) must see the
	// same ordered records.
	coldBlobs := pgblob.NewBlobStore(pool)
	reloaded, err := app.NewStoreService(ctx, coldBlobs, auth, app.WithReplyDelay(time.Hour))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close()

	scores := reloaded.UserQuizScores(alice.ID)
	if len(scores) != 1 || scores[0].Score != 85 {
		t.Fatalf("expected persisted score, got %+v", scores)
	}
	requests := reloaded.FriendRequests()
	if len(requests) != 1 || requests[0].Status != domain.RequestAccepted {
		t.Fatalf("expected accepted request, got %+v", requests)
	}
	friends := reloaded.Friends()
	if len(friends) != 1 || friends[0].ID != alice.ID {
		t.Fatalf("expected Alice in accepter's friends, got %+v", friends)
	}
}

func TestBlobRoundTripOnRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	blobs := redisblob.NewBlobStore(client)

	identity := &staticIdentity{user: domain.User{ID: "u1", Name: "Alice"}}
	store, err := app.NewStoreService(ctx, blobs, identity, app.WithReplyDelay(time.Hour))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()

	if err := store.SolveChallenge(ctx, "3"); err != nil {
		t.Fatalf("solve: %v", err)
	}

	reloaded, err := app.NewStoreService(ctx, blobs, identity, app.WithReplyDelay(time.Hour))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close()

	solved := reloaded.UserSolvedChallenges("u1")
	if len(solved) != 1 || solved[0].ID != "3" {
		t.Fatalf("expected solved challenge persisted in redis, got %+v", solved)
	}
}

type staticIdentity struct {
	user domain.User
}

func (s *staticIdentity) Current() (domain.User, bool) {
	return s.user, true
}

func migrateBlobs(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "codeconnect", "POSTGRES_PASSWORD": "codeconnect", "POSTGRES_DB": "codeconnect"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://codeconnect:codeconnect@%s:%s/codeconnect?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
