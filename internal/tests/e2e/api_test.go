//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/db"
	"github.com/binpoints/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := db.MigrateUp(ctx, config.LoadConfig().Database); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	_ = srv.Shutdown(shutdownCtx)
	stop()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestRecyclingLifecycle(t *testing.T) {
	c := &client{baseURL: fmt.Sprintf("http://localhost:%d", serverPort)}
	suffix := time.Now().UnixNano()

	adminName := fmt.Sprintf("admin_%d", suffix)
	admin := c.register(t, adminName)
	if err := promoteToAdmin(admin); err != nil {
		t.Fatalf("promote user: %v", err)
	}
	adminToken, role := c.login(t, adminName)
	if role != "admin" {
		t.Fatalf("unexpected admin role: %q", role)
	}

	userName := fmt.Sprintf("user_%d", suffix)
	user := c.register(t, userName)
	userToken, role := c.login(t, userName)
	if role != "user" {
		t.Fatalf("unexpected user role: %q", role)
	}

	bin := c.create(t, adminToken, "/bins", map[string]any{
		"name":      "Library",
		"latitude":  51.5,
		"longitude": -0.12,
		"whitelist": true,
	})
	can := c.create(t, adminToken, "/recyclables", map[string]any{
		"type":         "can",
		"points_value": 10,
	})
	reward := c.create(t, adminToken, "/rewards", map[string]any{
		"title": "Coffee",
		"price": 15,
	})
	c.create(t, adminToken, fmt.Sprintf("/bins/%d/whitelist", bin), map[string]any{"recyclable_id": can})

	submit := map[string]any{
		"user_id":       user,
		"bin_id":        bin,
		"recyclable_id": can,
		"latitude":      51.5,
		"longitude":     -0.12,
	}
	var subs []int64
	for i := 0; i < 2; i++ {
		subs = append(subs, c.create(t, userToken, "/submissions", submit))
	}

	if got := c.balance(t, userToken, user); got != 0 {
		t.Fatalf("expected unconfirmed submissions to earn nothing, got %d", got)
	}
	for _, id := range subs {
		status, body := c.do(t, http.MethodPatch, fmt.Sprintf("/submissions/%d", id), adminToken, map[string]any{"status": "confirmed"})
		if status != http.StatusOK {
			t.Fatalf("confirm submission status %d: %s", status, body)
		}
	}
	if got := c.balance(t, userToken, user); got != 20 {
		t.Fatalf("unexpected balance after confirmation: %d", got)
	}

	c.create(t, userToken, "/purchases", map[string]any{"user_id": user, "reward_id": reward})
	if got := c.balance(t, userToken, user); got != 5 {
		t.Fatalf("unexpected balance after purchase: %d", got)
	}

	status, body := c.do(t, http.MethodPost, "/purchases", userToken, map[string]any{"user_id": user, "reward_id": reward})
	if status != http.StatusForbidden {
		t.Fatalf("expected insufficient points to be forbidden, got %d: %s", status, body)
	}

	far := map[string]any{
		"user_id":       user,
		"bin_id":        bin,
		"recyclable_id": can,
		"latitude":      51.6,
		"longitude":     -0.12,
	}
	status, body = c.do(t, http.MethodPost, "/submissions", userToken, far)
	if status != http.StatusForbidden {
		t.Fatalf("expected distant submission to be forbidden, got %d: %s", status, body)
	}

	status, body = c.do(t, http.MethodGet, "/logs/actions", userToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected audit log to be admin only, got %d: %s", status, body)
	}
	status, body = c.do(t, http.MethodGet, "/logs/actions", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list audit log status %d: %s", status, body)
	}
	var logs struct {
		Logs []json.RawMessage `json:"user_action_logs"`
	}
	if err := json.Unmarshal(body, &logs); err != nil {
		t.Fatalf("decode audit log: %v", err)
	}
	if len(logs.Logs) == 0 {
		t.Fatalf("expected audit log entries")
	}
}

type client struct {
	baseURL string
}

func (c *client) do(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func (c *client) register(t *testing.T, username string) int64 {
	t.Helper()
	return c.create(t, "", "/register", map[string]any{
		"username":      username,
		"email":         fmt.Sprintf("%s@example.com", username),
		"password":      "testpass123!",
		"date_of_birth": "1990-04-01",
	})
}

func (c *client) login(t *testing.T, username string) (string, string) {
	t.Helper()

	status, body := c.do(t, http.MethodPost, "/login", "", map[string]any{
		"username": username,
		"password": "testpass123!",
	})
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if parsed.Token == "" {
		t.Fatalf("missing token in login response")
	}
	return parsed.Token, parsed.Role
}

// create posts payload and returns the id of the created resource.
func (c *client) create(t *testing.T, token, path string, payload any) int64 {
	t.Helper()

	status, body := c.do(t, http.MethodPost, path, token, payload)
	if status != http.StatusCreated {
		t.Fatalf("POST %s status %d: %s", path, status, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		Resource struct {
			ID int64 `json:"id"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode POST %s: %v", path, err)
	}
	if parsed.Resource.ID == 0 {
		t.Fatalf("POST %s: expected resource id to be set", path)
	}
	return parsed.Resource.ID
}

func (c *client) balance(t *testing.T, token string, userID int64) int64 {
	t.Helper()

	status, body := c.do(t, http.MethodGet, fmt.Sprintf("/users/%d/balance", userID), token, nil)
	if status != http.StatusOK {
		t.Fatalf("balance status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		Balance int64 `json:"points_balance"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	return parsed.Balance
}

func promoteToAdmin(userID int64) error {
	conn, err := sql.Open("postgres", postgresURL())
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "INSERT INTO staff (user_id, role) VALUES ($1, 'admin')", userID)
	return err
}

func waitForPostgres(ctx context.Context) error {
	conn, err := sql.Open("postgres", postgresURL())
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func postgresURL() string {
	cfg := config.LoadConfig()
	dsn, err := db.DSN(db.DriverPostgres, cfg.Database)
	if err != nil {
		return ""
	}
	return dsn
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_DRIVER", "postgres")
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "binpoints")
	_ = os.Setenv("DB_PASSWORD", "binpoints")
	_ = os.Setenv("DB_NAME", "binpoints")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "memory")
	_ = os.Setenv("MQ_BACKEND", "memory")
	_ = os.Setenv("RATE_LIMIT_ENABLED", "false")
}

func startServer(ctx context.Context) (*server.Server, error) {
	srv, err := server.New(ctx, config.LoadConfig())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
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
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
