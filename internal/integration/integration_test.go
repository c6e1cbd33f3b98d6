package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/auth"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/postgres"
	pgmigrations "quiz-assessment-service/internal/infra/postgres/migrations"
	infraredis "quiz-assessment-service/internal/infra/redis"
)

func TestMapAttemptSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()
	db := postgres.OpenBun(pgURL)
	defer db.Close()

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	quizzes := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	mappings := postgres.NewMappingStore(db)
	submissions := postgres.NewSubmissionStore(db)
	engine := app.NewMappingEngine(postgres.NewQuestionBank(pool), quizzes, mappings)

	assignable, err := engine.FetchAssignable(ctx, "quiz-1", "math", "")
	require.NoError(t, err)
	require.Len(t, assignable.Unmapped, 2)
	for _, q := range assignable.Unmapped {
		require.NoError(t, q.Validate(), "question %s decoded from legacy columns", q.ID)
	}

	marks, negative := 4.0, 1.0
	res, err := engine.MapSelected(ctx, "quiz-1", "math", []domain.Selection{
		{QuestionID: "q1", Marks: &marks, NegativeMarks: &negative},
		{QuestionID: "q2", Marks: &marks, NegativeMarks: &negative},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.QuestionCount)

	quiz, err := quizzes.GetQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	require.Equal(t, 2, quiz.QuestionCount, "cache invalidated after mapping")

	// Unmap and race two admins remapping the same question: the partial unique index lets
	// exactly one through.
	_, err = engine.UnmapSelected(ctx, "quiz-1", []string{res.Mapped[1].ID})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.MapSelected(ctx, "quiz-1", "math", []domain.Selection{{QuestionID: "q2", Marks: &marks, NegativeMarks: &negative}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrMappingConflict):
				conflicts++
			default:
				t.Errorf("unexpected map error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)

	live, err := mappings.ListMappings(ctx, "quiz-1")
	require.NoError(t, err)
	require.Len(t, live, 2)

	verifier := auth.NewJWTVerifier("integration-secret")
	token, err := verifier.Issue("u1", time.Hour)
	require.NoError(t, err)

	snapshots := infraredis.NewSnapshotStore(redisClient, time.Hour)
	submitter := app.NewSubmitter(verifier, submissions)
	service := app.NewAttemptService(quizzes, mappings, snapshots, verifier, submitter)

	attempt, resumed, err := service.Start(ctx, token, "quiz-1")
	require.NoError(t, err)
	require.False(t, resumed)

	_, err = attempt.SelectAnswer(ctx, "o2")
	require.NoError(t, err)
	require.NoError(t, attempt.Next(ctx))
	_, err = attempt.SelectAnswer(ctx, "o3")
	require.NoError(t, err)

	// A reload picks up the Redis snapshot.
	reloaded, resumed, err := service.Start(ctx, token, "quiz-1")
	require.NoError(t, err)
	require.True(t, resumed)
	require.Equal(t, attempt.Snapshot().Answers, reloaded.Snapshot().Answers)

	result, err := reloaded.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.AttemptedCount)
	require.Equal(t, 1, result.CorrectCount)
	require.InDelta(t, 3.0, result.TotalScore, 1e-9)

	rows, err := submissions.SubmissionRows(ctx, result.SubmissionID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	left, err := app.UserSnapshots(snapshots, "u1").Load(ctx, domain.AttemptKey("quiz-1"))
	require.NoError(t, err)
	require.Nil(t, left, "snapshot cleared after acknowledgment")
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := postgres.OpenBun(dsn)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)

	stmts := []string{
		`INSERT INTO quiz_groups (id, name) VALUES ('math', 'Mathematics')`,
		`INSERT INTO quizzes (id, group_id, title, duration_minutes, negative_marking, visible)
		 VALUES ('quiz-1', 'math', 'Arithmetic', 10, TRUE, TRUE)`,
		`INSERT INTO questions (id, group_id, level_id, text, kind, options, correct_answer)
		 VALUES ('q1', 'math', 'easy', 'What is 2 + 2?', 'single',
		         '[{"id":"o1","text":"3"},{"id":"o2","text":"4"}]', 'o2')`,
		`INSERT INTO questions (id, group_id, level_id, text, kind, options, correct_answer)
		 VALUES ('q2', 'math', 'hard', 'Which equal 6?', 'multiple',
		         '[{"id":"o1","text":"2*3"},{"id":"o2","text":"12/2"},{"id":"o3","text":"7"}]', 'o1 | o2')`,
	}
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
