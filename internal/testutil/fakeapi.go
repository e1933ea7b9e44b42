package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nhle/taskmaster/internal/model"
)

const fakeSecret = "fake-api-secret"

type fakeUser struct {
	model.User
	password string
}

// FakeAPI is an in-memory TaskMaster API server. Access tokens are HS256
// JWTs that stay valid until revoked or expired.
type FakeAPI struct {
	mu         sync.Mutex
	users      map[int64]*fakeUser
	tokens     map[string]int64
	tasks      map[int64]*model.Task
	nextUserID int64
	nextTaskID int64
	failures   map[string]int
	clock      time.Time

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration

	// LogoutCalls counts POST /auth/logout requests.
	LogoutCalls int

	server *httptest.Server
}

// NewFakeAPI starts a fake API server that is shut down with the test.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:    make(map[int64]*fakeUser),
		tokens:   make(map[string]int64),
		tasks:    make(map[int64]*model.Task),
		failures: make(map[string]int),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		TokenTTL: time.Hour,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	g := e.Group("/api", f.injectFailures)
	g.POST("/auth/register", f.register)
	g.POST("/auth/login", f.login)

	g.POST("/auth/logout", f.logout, f.requireAuth)
	g.GET("/auth/me", f.me, f.requireAuth)
	g.GET("/tasks", f.listTasks, f.requireAuth)
	g.POST("/tasks", f.createTask, f.requireAuth)
	g.PUT("/tasks/:id", f.updateTask, f.requireAuth)
	g.DELETE("/tasks/:id", f.deleteTask, f.requireAuth)
	g.POST("/tasks/:id/toggle", f.toggleTask, f.requireAuth)

	f.server = httptest.NewServer(e)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API root, ending in /api.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// Fail makes the next n requests matching "METHOD /path" (e.g.
// "GET /api/tasks") answer with a 500.
func (f *FakeAPI) Fail(route string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = n
}

// SeedUser creates an account and returns its identity and fresh tokens.
func (f *FakeAPI) SeedUser(email, password, name string) (model.User, model.Tokens) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.createUser(email, password, name)
	return u.User, f.issueTokens(u.ID)
}

// SeedTask adds a task for userID.
func (f *FakeAPI) SeedTask(userID int64, title string, status model.TaskStatus) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.addTask(userID, title, "", status)
}

// Tasks returns userID's tasks, newest first.
func (f *FakeAPI) Tasks(userID int64) []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userTasks(userID)
}

// RevokeAll invalidates every issued access token.
func (f *FakeAPI) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]int64)
}

func (f *FakeAPI) createUser(email, password, name string) *fakeUser {
	f.nextUserID++
	u := &fakeUser{
		User:     model.User{ID: f.nextUserID, Email: email, Name: name},
		password: password,
	}
	f.users[u.ID] = u
	return u
}

func (f *FakeAPI) issueTokens(userID int64) model.Tokens {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(f.TokenTTL)),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fakeSecret))
	f.tokens[access] = userID
	return model.Tokens{AccessToken: access, RefreshToken: uuid.NewString()}
}

func (f *FakeAPI) addTask(userID int64, title, description string, status model.TaskStatus) *model.Task {
	if status == model.StatusAll {
		status = model.StatusPending
	}
	f.nextTaskID++
	f.clock = f.clock.Add(time.Minute)
	t := &model.Task{
		ID:          f.nextTaskID,
		Title:       title,
		Description: description,
		Status:      status,
		UserID:      userID,
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	f.tasks[t.ID] = t
	return t
}

func (f *FakeAPI) userTasks(userID int64) []model.Task {
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *FakeAPI) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Request().URL.Path
		f.mu.Lock()
		n := f.failures[route]
		if n > 0 {
			f.failures[route] = n - 1
		}
		f.mu.Unlock()
		if n > 0 {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
		}
		return next(c)
	}
}

func (f *FakeAPI) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access token required"})
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.ErrUnauthorized
			}
			return []byte(fakeSecret), nil
		})
		if err != nil || !tok.Valid {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or expired token"})
		}

		f.mu.Lock()
		userID, ok := f.tokens[raw]
		f.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or expired token"})
		}

		c.Set("user_id", userID)
		c.Set("token", raw)
		return next(c)
	}
}

func userID(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}

type authBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (f *FakeAPI) register(c echo.Context) error {
	var body authBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if body.Email == "" || len(body.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Email and password (min 6 chars) are required"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, body.Email) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "User already exists"})
		}
	}
	u := f.createUser(body.Email, body.Password, body.Name)
	return c.JSON(http.StatusCreated, model.AuthResponse{
		Message: "User registered successfully",
		User:    u.User,
		Tokens:  f.issueTokens(u.ID),
	})
}

func (f *FakeAPI) login(c echo.Context) error {
	var body authBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, body.Email) && u.password == body.Password {
			return c.JSON(http.StatusOK, model.AuthResponse{
				Message: "Login successful",
				User:    u.User,
				Tokens:  f.issueTokens(u.ID),
			})
		}
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
}

func (f *FakeAPI) logout(c echo.Context) error {
	raw, _ := c.Get("token").(string)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	delete(f.tokens, raw)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (f *FakeAPI) me(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID(c)]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.User})
}

func (f *FakeAPI) listTasks(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 10
	}
	status := model.TaskStatus(c.QueryParam("status"))
	search := strings.ToLower(c.QueryParam("search"))

	f.mu.Lock()
	all := f.userTasks(userID(c))
	f.mu.Unlock()

	matched := make([]model.Task, 0, len(all))
	for _, t := range all {
		if status != model.StatusAll && t.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		matched = append(matched, t)
	}

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, model.TaskPage{
		Tasks: matched[start:end],
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

type taskBody struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Status      *model.TaskStatus `json:"status"`
}

func (f *FakeAPI) createTask(c echo.Context) error {
	var body taskBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if body.Title == nil || strings.TrimSpace(*body.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Title is required"})
	}
	status := model.StatusPending
	if body.Status != nil {
		if !body.Status.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid status"})
		}
		status = *body.Status
	}
	var desc string
	if body.Description != nil {
		desc = *body.Description
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.addTask(userID(c), *body.Title, desc, status)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Task created successfully", "task": t})
}

// ownedTask must be called with f.mu held.
func (f *FakeAPI) ownedTask(c echo.Context) (*model.Task, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid task id"})
	}
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID(c) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
	}
	return t, nil
}

func (f *FakeAPI) updateTask(c echo.Context) error {
	var body taskBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.ownedTask(c)
	if t == nil {
		return err
	}
	if body.Title != nil {
		t.Title = *body.Title
	}
	if body.Description != nil {
		t.Description = *body.Description
	}
	if body.Status != nil {
		t.Status = *body.Status
	}
	f.clock = f.clock.Add(time.Minute)
	t.UpdatedAt = f.clock
	return c.JSON(http.StatusOK, echo.Map{"message": "Task updated successfully", "task": t})
}

func (f *FakeAPI) deleteTask(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.ownedTask(c)
	if t == nil {
		return err
	}
	delete(f.tasks, t.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted successfully"})
}

// toggleTask advances PENDING -> IN_PROGRESS -> COMPLETED -> PENDING.
func (f *FakeAPI) toggleTask(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.ownedTask(c)
	if t == nil {
		return err
	}
	switch t.Status {
	case model.StatusPending:
		t.Status = model.StatusInProgress
	case model.StatusInProgress:
		t.Status = model.StatusCompleted
	default:
		t.Status = model.StatusPending
	}
	f.clock = f.clock.Add(time.Minute)
	t.UpdatedAt = f.clock
	return c.JSON(http.StatusOK, echo.Map{"message": "Task status updated", "task": t})
}
