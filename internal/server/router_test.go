package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "pass1234"

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB

	company   models.Company
	registrar models.User
	signer    models.User
	exec1     models.User
	exec2     models.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{db: db}

	env.company = models.Company{Name: "Head Office", Code: "HQ"}
	if err := db.Create(&env.company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	users := []*models.User{
		{Username: "registrar", Role: models.RoleRegistrar},
		{Username: "signer", Role: models.RoleSigner},
		{Username: "exec1", Role: models.RoleExecutor},
		{Username: "exec2", Role: models.RoleExecutor},
	}
	for _, u := range users {
		u.PasswordHash = string(hash)
		u.CompanyID = env.company.ID
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user %s: %v", u.Username, err)
		}
	}
	env.registrar, env.signer, env.exec1, env.exec2 = *users[0], *users[1], *users[2], *users[3]

	cfg := &config.Config{
		ServerPort:    "0",
		SessionSecret: "test-secret",
		SessionName:   "test_session",
	}
	env.router = NewRouter(cfg, db)

	return env
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (env *testEnv) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()

	w := doRequest(t, env.router, http.MethodPost, "/login", gin.H{
		"username": username,
		"password": testPassword,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	w := doRequest(t, env.router, http.MethodGet, "/tasks", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /tasks: status %d, want 401", w.Code)
	}

	w = doRequest(t, env.router, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("/health: status %d, want 200", w.Code)
	}
}

func TestRoleGates(t *testing.T) {
	env := setupTestEnv(t)
	execCookies := env.login(t, "exec1")

	w := doRequest(t, env.router, http.MethodPost, "/tasks", gin.H{"name": "nope"}, execCookies)
	if w.Code != http.StatusForbidden {
		t.Errorf("executor creates task: status %d, want 403", w.Code)
	}

	w = doRequest(t, env.router, http.MethodDelete, "/tasks/1", nil, execCookies)
	if w.Code != http.StatusForbidden {
		t.Errorf("executor deletes task: status %d, want 403", w.Code)
	}
}

func TestTaskWorkflowOverHTTP(t *testing.T) {
	env := setupTestEnv(t)

	regCookies := env.login(t, "registrar")
	exec1Cookies := env.login(t, "exec1")
	exec2Cookies := env.login(t, "exec2")
	signerCookies := env.login(t, "signer")

	// регистрация задачи и двух частей
	w := doRequest(t, env.router, http.MethodPost, "/tasks", gin.H{
		"name":          "Incoming letter 42",
		"type":          "task",
		"priority":      "urgent",
		"signed_by_id":  env.signer.ID,
		"in_doc_number": "IN-42",
	}, regCookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: status %d, body %s", w.Code, w.Body.String())
	}
	task := decode[models.Task](t, w)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	var parts [2]models.TaskPart
	for i, assignee := range []uint{env.exec1.ID, env.exec2.ID} {
		w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/tasks/%d/parts", task.ID), gin.H{
			"title":       fmt.Sprintf("part %d", i+1),
			"assignee_id": assignee,
			"start_date":  start,
		}, regCookies)
		if w.Code != http.StatusCreated {
			t.Fatalf("create part %d: status %d, body %s", i, w.Code, w.Body.String())
		}
		parts[i] = decode[models.TaskPart](t, w)
	}

	// сдача без подтверждения отклоняется
	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[0].ID), gin.H{
		"to_status": "on_review",
	}, exec1Cookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("no evidence: status %d, want 400", w.Code)
	}

	// чужую часть сдать нельзя
	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[0].ID), gin.H{
		"to_status": "on_review",
		"comment":   "not mine",
	}, exec2Cookies)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign part: status %d, want 403", w.Code)
	}

	// недопустимый переход
	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[0].ID), gin.H{
		"to_status": "done",
	}, signerCookies)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("new -> done: status %d, want 422", w.Code)
	}

	// нормальный ход: сдал — принял, для обеих частей
	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[0].ID), gin.H{
		"to_status": "on_review",
		"comment":   "ready, draft attached",
	}, exec1Cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("submit A: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), nil, regCookies)
	if got := decode[models.Task](t, w); got.Status != models.StatusInProgress {
		t.Errorf("task status = %s, want in_progress", got.Status)
	}

	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[0].ID), gin.H{
		"to_status": "done",
	}, signerCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("approve A: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[1].ID), gin.H{
		"to_status": "on_review",
		"attachment": gin.H{
			"file_name": "result.pdf",
			"title":     "Result",
		},
	}, exec2Cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("submit B: status %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/parts/%d/transition", parts[1].ID), gin.H{
		"to_status": "done",
	}, signerCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("approve B: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), nil, regCookies)
	if got := decode[models.Task](t, w); got.Status != models.StatusDone {
		t.Errorf("final task status = %s, want done", got.Status)
	}

	// хронология журнала
	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d/events", task.ID), nil, regCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("events: status %d", w.Code)
	}
	events := decode[[]models.TaskEvent](t, w)
	if len(events) == 0 || events[0].EventType != models.EventCreated {
		t.Fatalf("timeline does not start with CREATED: %+v", events)
	}
	statusChanges := 0
	for i, e := range events {
		if e.EventType == models.EventStatusChanged {
			statusChanges++
		}
		if i > 0 && e.CreatedAt.Before(events[i-1].CreatedAt) {
			t.Errorf("timeline out of order at %d", i)
		}
	}
	if statusChanges != 4 {
		t.Errorf("STATUS_CHANGED events = %d, want 4", statusChanges)
	}

	// календарь: обе части стартуют 10 марта
	w = doRequest(t, env.router, http.MethodGet, "/calendar?year=2026&month=3", nil, regCookies)
	if w.Code != http.StatusOK {
		t.Fatalf("calendar: status %d", w.Code)
	}
	cal := decode[struct {
		Days map[string]struct {
			Total    int                       `json:"total"`
			ByStatus map[models.TaskStatus]int `json:"by_status"`
		} `json:"days"`
	}](t, w)
	day, ok := cal.Days["2026-03-10"]
	if !ok {
		t.Fatalf("calendar misses 2026-03-10: %v", cal.Days)
	}
	if day.Total != 2 || day.ByStatus[models.StatusDone] != 2 {
		t.Errorf("2026-03-10 = %+v, want total 2 all done", day)
	}
}

func TestCommentAndAttachmentEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	regCookies := env.login(t, "registrar")

	w := doRequest(t, env.router, http.MethodPost, "/tasks", gin.H{"name": "t", "signed_by_id": env.signer.ID}, regCookies)
	task := decode[models.Task](t, w)

	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/tasks/%d/comments", task.ID), gin.H{"text": "please expedite"}, regCookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("comment: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodPost, fmt.Sprintf("/tasks/%d/attachments", task.ID), gin.H{
		"link":  "https://files.local/doc/42",
		"title": "Original",
	}, regCookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("attachment: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d/comments", task.ID), nil, regCookies)
	if got := decode[[]models.TaskComment](t, w); len(got) != 1 {
		t.Errorf("comments = %d, want 1", len(got))
	}
	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d/attachments", task.ID), nil, regCookies)
	if got := decode[[]models.TaskAttachment](t, w); len(got) != 1 {
		t.Errorf("attachments = %d, want 1", len(got))
	}

	// журнал: CREATED + COMMENTED + FILE_ADDED
	w = doRequest(t, env.router, http.MethodGet, fmt.Sprintf("/tasks/%d/events", task.ID), nil, regCookies)
	events := decode[[]models.TaskEvent](t, w)
	if len(events) != 3 {
		t.Errorf("events = %d, want 3", len(events))
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	w := doRequest(t, env.router, http.MethodPost, "/register", gin.H{
		"username": "newexec",
		"password": "secret123",
		"role":     "executor",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", w.Code, w.Body.String())
	}
	created := decode[models.User](t, w)
	if created.CompanyID != env.company.ID {
		t.Errorf("company_id = %d, want default %d", created.CompanyID, env.company.ID)
	}

	// админом самому записаться нельзя
	w = doRequest(t, env.router, http.MethodPost, "/register", gin.H{
		"username": "wannabe",
		"password": "secret123",
		"role":     "admin",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("register admin: status %d, want 400", w.Code)
	}

	// занятое имя
	w = doRequest(t, env.router, http.MethodPost, "/register", gin.H{
		"username": "newexec",
		"password": "secret123",
		"role":     "executor",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate username: status %d, want 409", w.Code)
	}

	w = doRequest(t, env.router, http.MethodPost, "/login", gin.H{
		"username": "newexec",
		"password": "secret123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login after register: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodPost, "/login", gin.H{
		"username": "newexec",
		"password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status %d, want 401", w.Code)
	}
}

func TestMeAndLogout(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t, "signer")

	w := doRequest(t, env.router, http.MethodGet, "/me", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("/me: status %d", w.Code)
	}
	if got := decode[models.User](t, w); got.Username != "signer" {
		t.Errorf("me = %s, want signer", got.Username)
	}

	w = doRequest(t, env.router, http.MethodPost, "/logout", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
}
