package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/board"
)

// AnonKey is the API key the fake backend accepts.
const AnonKey = "test-anon-key"

type account struct {
	id       string
	email    string
	password string
	token    string
}

type failure struct {
	status  int
	code    string
	message string
}

// Backend is an in-memory stand-in for the hosted row API. It serves the
// routes the gateway uses and nothing more.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	projects []board.Project
	leads    map[string]board.ProfileRef
	members  map[string][]board.ProfileRef
	columns  []board.Column
	tasks    []board.Task
	failures map[string]failure
	accounts map[string]account
	requests []string
	nextID   int
}

// NewBackend starts a fake backend that is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		leads:    map[string]board.ProfileRef{},
		members:  map[string][]board.ProfileRef{},
		failures: map[string]failure{},
		accounts: map[string]account{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", b.signIn)
	mux.HandleFunc("GET /auth/v1/user", b.getUser)
	mux.HandleFunc("POST /rest/v1/rpc/load_kanban_project", b.loadProject)
	mux.HandleFunc("GET /rest/v1/projects", b.getProjects)
	mux.HandleFunc("PATCH /rest/v1/projects", b.patchProject)
	mux.HandleFunc("GET /rest/v1/project_members", b.getMembers)
	mux.HandleFunc("GET /rest/v1/tasks", b.searchTasks)
	mux.HandleFunc("POST /rest/v1/tasks", b.insertTask)
	mux.HandleFunc("PATCH /rest/v1/tasks", b.patchTask)
	mux.HandleFunc("DELETE /rest/v1/tasks", b.deleteTask)

	b.Server = httptest.NewServer(b.guard(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddAccount registers a password login. Signing in returns token.
func (b *Backend) AddAccount(userID, email, password, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[email] = account{id: userID, email: email, password: password, token: token}
}

// AddProject seeds a project led by lead.
func (b *Backend) AddProject(p board.Project, lead board.ProfileRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Status == "" {
		p.Status = board.StatusActive
	}
	if p.CreatedBy == "" {
		p.CreatedBy = lead.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	b.projects = append(b.projects, p)
	b.leads[p.ID] = lead
}

// AddMember adds a member to a project.
func (b *Backend) AddMember(projectID string, member board.ProfileRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[projectID] = append(b.members[projectID], member)
}

// AddColumn seeds a column.
func (b *Backend) AddColumn(c board.Column) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns = append(b.columns, c)
}

// AddTask seeds a task.
func (b *Backend) AddTask(task board.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, task)
}

// Task returns the stored task with id.
func (b *Backend) Task(id string) (board.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.IndexFunc(b.tasks, func(t board.Task) bool { return t.ID == id })
	if i < 0 {
		return board.Task{}, false
	}
	return b.tasks[i], true
}

// Project returns the stored project with id.
func (b *Backend) Project(id string) (board.Project, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.IndexFunc(b.projects, func(p board.Project) bool { return p.ID == id })
	if i < 0 {
		return board.Project{}, false
	}
	return b.projects[i], true
}

// FailNext makes the next method request against table fail with a
// backend error.
func (b *Backend) FailNext(method, table string, status int, code, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+table] = failure{status: status, code: code, message: message}
}

// Requests returns "METHOD path" for every request served.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

func (b *Backend) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != AnonKey {
			writeError(w, http.StatusUnauthorized, "", "Invalid API key")
			return
		}
		table := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/rest/v1/"), "/auth/v1/")
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		f, failing := b.failures[r.Method+" "+table]
		delete(b.failures, r.Method+" "+table)
		b.mu.Unlock()
		if failing {
			writeError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if r.URL.Query().Get("grant_type") != "password" {
		writeAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "Unsupported grant type")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[creds.Email]
	b.mu.Unlock()
	if !ok || acc.password != creds.Password {
		writeAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  acc.token,
		"refresh_token": "refresh-" + acc.id,
		"expires_in":    3600,
		"user":          map[string]string{"id": acc.id, "email": acc.email},
	})
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		if acc.token == token {
			writeJSON(w, http.StatusOK, map[string]string{"id": acc.id, "email": acc.email})
			return
		}
	}
	writeAuthError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
}

func (b *Backend) loadProject(w http.ResponseWriter, r *http.Request) {
	var params struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	snap := board.Snapshot{Columns: []board.Column{}, Tasks: []board.Task{}, Members: []board.ProfileRef{}}
	i := slices.IndexFunc(b.projects, func(p board.Project) bool { return p.ID == params.ProjectID })
	if i >= 0 {
		p := b.projects[i]
		snap.Project = &p
		snap.ProjectLead = b.leads[p.ID].Username
		snap.Members = append(snap.Members, b.leads[p.ID])
		snap.Members = append(snap.Members, b.members[p.ID]...)
		for _, c := range b.columns {
			if c.ProjectID == p.ID {
				snap.Columns = append(snap.Columns, c)
			}
		}
		for _, t := range b.tasks {
			if t.ProjectID == p.ID {
				snap.Tasks = append(snap.Tasks, t)
			}
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (b *Backend) getProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := strings.CutPrefix(q.Get("id"), "eq."); ok {
		i := slices.IndexFunc(b.projects, func(p board.Project) bool { return p.ID == id })
		if i < 0 {
			writeError(w, http.StatusNotAcceptable, "PGRST116", "JSON object requested, multiple (or no) rows returned")
			return
		}
		// One shape serves both the project and the lead roster select.
		writeJSON(w, http.StatusOK, struct {
			board.Project
			Profiles map[string]string `json:"profiles"`
		}{b.projects[i], map[string]string{"username": b.leads[id].Username}})
		return
	}

	owner, _ := strings.CutPrefix(q.Get("created_by"), "eq.")
	out := []board.Project{}
	for _, p := range b.projects {
		if p.CreatedBy == owner && p.Status != board.StatusArchived {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) patchProject(w http.ResponseWriter, r *http.Request) {
	id, _ := strings.CutPrefix(r.URL.Query().Get("id"), "eq.")
	var changes struct {
		Status board.ProjectStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.projects {
		if b.projects[i].ID == id && changes.Status != "" {
			b.projects[i].Status = changes.Status
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) getMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.mu.Lock()
	defer b.mu.Unlock()

	if projectID, ok := strings.CutPrefix(q.Get("project_id"), "eq."); ok {
		rows := []map[string]any{}
		for _, m := range b.members[projectID] {
			// Joined profiles arrive as one-element lists here.
			rows = append(rows, map[string]any{
				"user_id":  m.ID,
				"profiles": []map[string]string{{"username": m.Username}},
			})
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}

	userID, _ := strings.CutPrefix(q.Get("user_id"), "eq.")
	rows := []map[string]any{}
	for _, p := range b.projects {
		if p.Status == board.StatusArchived {
			continue
		}
		if slices.ContainsFunc(b.members[p.ID], func(m board.ProfileRef) bool { return m.ID == userID }) {
			rows = append(rows, map[string]any{"project_id": p.ID, "projects": p})
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) searchTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strings.CutPrefix(q.Get("project_id"), "eq.")
	term := ""
	if _, rest, ok := strings.Cut(q.Get("or"), "ilike.*"); ok {
		term, _, _ = strings.Cut(rest, "*")
	}
	term = strings.ToLower(term)

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []board.Task{}
	for _, t := range b.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if strings.Contains(strings.ToLower(t.Title), term) || strings.Contains(strings.ToLower(t.Description), term) {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) insertTask(w http.ResponseWriter, r *http.Request) {
	var task board.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
		return
	}
	b.mu.Lock()
	b.nextID++
	task.ID = fmt.Sprintf("task-%d", b.nextID)
	b.tasks = append(b.tasks, task)
	b.mu.Unlock()
	writeRows(w, r, http.StatusCreated, []board.Task{task})
}

func (b *Backend) patchTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strings.CutPrefix(r.URL.Query().Get("id"), "eq.")
	var changes map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
		return
	}

	b.mu.Lock()
	updated := []board.Task{}
	for i := range b.tasks {
		if b.tasks[i].ID != id {
			continue
		}
		merged, err := mergeTask(b.tasks[i], changes)
		if err != nil {
			b.mu.Unlock()
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		b.tasks[i] = merged
		updated = append(updated, merged)
	}
	b.mu.Unlock()
	writeRows(w, r, http.StatusOK, updated)
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strings.CutPrefix(r.URL.Query().Get("id"), "eq.")
	b.mu.Lock()
	b.tasks = slices.DeleteFunc(b.tasks, func(t board.Task) bool { return t.ID == id })
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func mergeTask(task board.Task, changes map[string]json.RawMessage) (board.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return task, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return task, err
	}
	for k, v := range changes {
		fields[k] = v
	}
	data, err = json.Marshal(fields)
	if err != nil {
		return task, err
	}
	var out board.Task
	err = json.Unmarshal(data, &out)
	return out, err
}

func writeRows(w http.ResponseWriter, r *http.Request, status int, rows []board.Task) {
	if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
