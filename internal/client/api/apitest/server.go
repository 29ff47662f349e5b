// Package apitest runs an in-memory fake of the blog-post API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const PerPage = 10

type account struct {
	user     models.User
	password string
}

// Server is a fake API mounted under /api/v1. All state is guarded by mu;
// tests may seed and inspect it while requests are running.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> email
	posts    []models.Post
	nextID   int64
	latency  map[string]time.Duration
	failures map[string]int
	calls    map[string]int
	headers  []http.Header
}

func NewServer() *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		latency:  map[string]time.Duration{},
		failures: map[string]int{},
		calls:    map[string]int{},
		nextID:   1,
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.record)
	v1.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.authed(s.handleLogout)).Methods(http.MethodPost)
	v1.HandleFunc("/auth/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	v1.HandleFunc("/auth/profile", s.authed(s.handleProfile)).Methods(http.MethodPut)
	v1.HandleFunc("/auth/change-password", s.authed(s.handleChangePassword)).Methods(http.MethodPut)
	v1.HandleFunc("/auth/delete-account", s.authed(s.handleDeleteAccount)).Methods(http.MethodDelete)
	v1.HandleFunc("/posts", s.authed(s.handleListPosts)).Methods(http.MethodGet)
	v1.HandleFunc("/posts", s.authed(s.handleCreatePost)).Methods(http.MethodPost)
	v1.HandleFunc("/posts-stats", s.authed(s.handleStats)).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.handleGetPost)).Methods(http.MethodGet)
	v1.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.handleUpdatePost)).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id:[0-9]+}", s.authed(s.handleDeletePost)).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to hand to api.NewTransport.
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1"
}

// AddUser registers an account directly and returns a valid token for it.
func (s *Server) AddUser(name, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = &account{
		user:     models.User{ID: int64(len(s.accounts) + 1), Name: name, Email: email, CreatedAt: time.Now().UTC()},
		password: password,
	}
	return s.issueToken(email)
}

// AddPosts creates n posts with the given status, titled "<prefix> <i>".
func (s *Server) AddPosts(n int, prefix string, status models.PostStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; i <= n; i++ {
		s.createPost(models.PostInput{Title: fmt.Sprintf("%s %d", prefix, i), Body: "body", Status: status}, time.Now().UTC())
	}
}

// SetLatency delays every request to path (relative to /api/v1) by d.
func (s *Server) SetLatency(path string, d time.Duration) {
	s.mu.Lock()
	s.latency[path] = d
	s.mu.Unlock()
}

// FailNext makes the next request to path answer with status.
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	s.failures[path] = status
	s.mu.Unlock()
}

// Calls counts requests received for path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastHeaders returns the headers of the most recent request.
func (s *Server) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

// TokenValid reports whether token is still accepted.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) Post(id int64) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")

		s.mu.Lock()
		s.calls[path]++
		s.headers = append(s.headers, r.Header.Clone())
		delay := s.latency[path]
		status, fail := s.failures[path]
		delete(s.failures, path)
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			writeError(w, status, http.StatusText(status), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, email string)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
			return
		}
		h(w, r, email)
	}
}

func (s *Server) issueToken(email string) string {
	token := uuid.NewString()
	s.tokens[token] = email
	return token
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = []string{"The name field is required."}
	}
	if req.Email == "" {
		fields["email"] = []string{"The email field is required."}
	} else if _, taken := s.accounts[req.Email]; taken {
		fields["email"] = []string{"The email has already been taken."}
	}
	if len(req.Password) < 8 {
		fields["password"] = []string{"The password field must be at least 8 characters."}
	} else if req.Password != req.PasswordConfirmation {
		fields["password"] = []string{"The password field confirmation does not match."}
	}
	if len(fields) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", fields)
		return
	}

	acc := &account{
		user:     models.User{ID: int64(len(s.accounts) + 1), Name: req.Name, Email: req.Email, CreatedAt: time.Now().UTC()},
		password: req.Password,
	}
	s.accounts[req.Email] = acc
	writeData(w, http.StatusCreated, models.AuthResult{Token: s.issueToken(req.Email), User: acc.user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	writeData(w, http.StatusOK, models.AuthResult{Token: s.issueToken(req.Email), User: acc.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ string) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeMessage(w, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, email string) {
	s.mu.Lock()
	user := s.accounts[email].user
	s.mu.Unlock()
	writeData(w, http.StatusOK, user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, email string) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"name": {"The name field is required."}})
		return
	}
	acc := s.accounts[email]
	acc.user.Name = req.Name
	if req.Email != email {
		delete(s.accounts, email)
		acc.user.Email = req.Email
		s.accounts[req.Email] = acc
		for tok, e := range s.tokens {
			if e == email {
				s.tokens[tok] = req.Email
			}
		}
	}
	writeData(w, http.StatusOK, acc.user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, email string) {
	var req struct {
		Current      string `json:"current_password"`
		New          string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[email]
	if acc.password != req.Current {
		writeError(w, http.StatusUnprocessableEntity, "Current password is incorrect.",
			map[string][]string{"current_password": {"The current password is incorrect."}})
		return
	}
	if req.New != req.Confirmation {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"new_password": {"The new password field confirmation does not match."}})
		return
	}
	acc.password = req.New
	writeMessage(w, "Password changed")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, _ *http.Request, email string) {
	s.mu.Lock()
	delete(s.accounts, email)
	for tok, e := range s.tokens {
		if e == email {
			delete(s.tokens, tok)
		}
	}
	s.mu.Unlock()
	writeMessage(w, "Account deleted")
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	search := strings.ToLower(q.Get("search"))
	status := models.PostStatus(q.Get("status"))

	s.mu.Lock()
	var matched []models.Post
	for i := len(s.posts) - 1; i >= 0; i-- {
		p := s.posts[i]
		if status != models.StatusAny && p.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Body), search) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	total := len(matched)
	lastPage := (total + PerPage - 1) / PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	from := min((page-1)*PerPage, total)
	to := min(from+PerPage, total)

	writeData(w, http.StatusOK, models.PostPage{Items: append([]models.Post{}, matched[from:to]...), LastPage: lastPage, Total: total})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.PostStats
	byMonth := map[string]int{}
	for _, p := range s.posts {
		stats.Total++
		if p.Status == models.StatusPublished {
			stats.Published++
		} else {
			stats.Drafts++
		}
		byMonth[p.CreatedAt.Format("2006-01")]++
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		stats.Monthly = append(stats.Monthly, models.MonthlyCount{Month: m, Count: models.FlexibleInt(byMonth[m])})
	}
	writeData(w, http.StatusOK, stats)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, _ string) {
	p, ok := s.Post(pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, _ string) {
	var in models.PostInput
	if !decode(w, r, &in) {
		return
	}
	if fields := validatePost(in); fields != nil {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", fields)
		return
	}
	s.mu.Lock()
	p := s.createPost(in, time.Now().UTC())
	s.mu.Unlock()
	writeData(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, _ string) {
	if err := r.ParseMultipartForm(1 << 20); err != nil || r.FormValue("_method") != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "The POST method is not supported for this route.", nil)
		return
	}
	in := models.PostInput{
		Title:  r.FormValue("title"),
		Body:   r.FormValue("body"),
		Status: models.PostStatus(r.FormValue("status")),
	}
	if fields := validatePost(in); fields != nil {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", fields)
		return
	}

	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Title = in.Title
			s.posts[i].Body = in.Body
			s.posts[i].Status = in.Status
			s.posts[i].UpdatedAt = time.Now().UTC()
			writeData(w, http.StatusOK, s.posts[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Post not found.", nil)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, _ string) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			writeMessage(w, "Post deleted")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Post not found.", nil)
}

func (s *Server) createPost(in models.PostInput, at time.Time) models.Post {
	p := models.Post{ID: s.nextID, Title: in.Title, Body: in.Body, Status: in.Status, CreatedAt: at, UpdatedAt: at}
	s.nextID++
	s.posts = append(s.posts, p)
	return p
}

func validatePost(in models.PostInput) map[string][]string {
	fields := map[string][]string{}
	if in.Title == "" {
		fields["title"] = []string{"The title field is required."}
	}
	if in.Body == "" {
		fields["body"] = []string{"The body field is required."}
	}
	if in.Status != models.StatusPublished && in.Status != models.StatusDraft {
		fields["status"] = []string{"The selected status is invalid."}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON.", nil)
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string][]string) {
	body := map[string]any{"message": msg}
	if fields != nil {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
