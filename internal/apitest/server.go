// Package apitest runs an in-process fake of the fuelcoach API for tests.
package apitest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Prefix is the API root every route lives under.
const Prefix = "/api/v1"

type user struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	hash  []byte
}

// Received is one request that reached a protected route.
type Received struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// Server is a fake backend with real token rotation: every refresh consumes the
// presented refresh token and issues a new pair.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int
	users    map[string]*user
	access   map[string]int
	refresh  map[string]int
	calls    map[string]int
	received []Received
	uploads  map[string]bool
	offline  bool
	failing  map[string]int
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{
		users:   make(map[string]*user),
		access:  make(map[string]int),
		refresh: make(map[string]int),
		calls:   make(map[string]int),
		uploads: make(map[string]bool),
		failing: make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, including the /api/v1 prefix.
func (s *Server) URL() string { return s.srv.URL + Prefix }

// Origin is the scheme and host without the prefix.
func (s *Server) Origin() string { return s.srv.URL }

func (s *Server) Client() *http.Client { return s.srv.Client() }

func (s *Server) routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.count, s.dropWhenOffline)

	v1 := r.Group(Prefix)
	auth := v1.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.rotate)
	auth.GET("/me", s.requireAuth, s.me)

	protected := v1.Group("", s.requireAuth, s.record)
	protected.POST("/workouts/upload-fit", s.uploadFit)
	protected.POST("/photo/analyze", s.analyzePhoto)
	protected.GET("/empty", func(c *gin.Context) { c.Status(http.StatusOK) })
	protected.GET("/not-json", func(c *gin.Context) { c.String(http.StatusOK, "<html>oops</html>") })

	r.NoRoute(s.requireAuth, s.record, s.echo)
	return r
}

// AddUser registers a user directly.
func (s *Server) AddUser(email, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.users[normalizeEmail(email)] = &user{ID: s.nextID, Email: normalizeEmail(email), hash: hash}
}

// IssueTokens mints a pair for an existing user without a login call.
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[normalizeEmail(email)]
	if u == nil {
		return "", ""
	}
	return s.issueLocked(u.ID)
}

// ExpireAccessTokens invalidates every access token; refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]int)
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refresh = make(map[string]int)
	s.mu.Unlock()
}

// SetOffline makes every request fail at the connection level.
func (s *Server) SetOffline(offline bool) {
	s.mu.Lock()
	s.offline = offline
	s.mu.Unlock()
}

// FailNext makes the next n requests to path answer 503.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	s.failing[Prefix+path] = n
	s.mu.Unlock()
}

// Calls returns how many requests reached method and path (path without prefix).
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+Prefix+path]
}

// Received returns the requests seen by protected routes, oldest first.
func (s *Server) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.received...)
}

func (s *Server) issueLocked(userID int) (string, string) {
	access := "access-" + uuid.NewString()
	refresh := uuid.NewString()
	s.access[access] = userID
	s.refresh[refresh] = userID
	return access, refresh
}

func (s *Server) userByIDLocked(id int) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.calls[c.Request.Method+" "+c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) dropWhenOffline(c *gin.Context) {
	s.mu.Lock()
	offline := s.offline
	s.mu.Unlock()
	if !offline {
		c.Next()
		return
	}
	conn, _, err := c.Writer.Hijack()
	if err == nil {
		_ = conn.Close()
	}
	c.Abort()
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	s.mu.Lock()
	userID, ok := s.access[token]
	s.mu.Unlock()
	if header == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}
	c.Set("user_id", userID)
	c.Next()
}

func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.received = append(s.received, Received{
		Method:        c.Request.Method,
		Path:          strings.TrimPrefix(c.Request.URL.Path, Prefix),
		Authorization: c.GetHeader("Authorization"),
		ContentType:   c.GetHeader("Content-Type"),
		Body:          body,
	})
	remaining := s.failing[c.Request.URL.Path]
	if remaining > 0 {
		s.failing[c.Request.URL.Path] = remaining - 1
	}
	s.mu.Unlock()

	if remaining > 0 {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "Service temporarily unavailable"})
		return
	}
	c.Next()
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) tokenResponse(c *gin.Context, u *user) {
	s.mu.Lock()
	access, refresh := s.issueLocked(u.ID)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    1800,
		"user":          gin.H{"id": u.ID, "email": u.Email},
	})
}

func (s *Server) register(c *gin.Context) {
	var body credentialsBody
	_ = c.ShouldBindJSON(&body)
	email := normalizeEmail(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email and password required"})
		return
	}
	s.mu.Lock()
	_, exists := s.users[email]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	s.AddUser(email, body.Password)
	s.mu.Lock()
	u := s.users[email]
	s.mu.Unlock()
	s.tokenResponse(c, u)
}

func (s *Server) login(c *gin.Context) {
	var body credentialsBody
	_ = c.ShouldBindJSON(&body)
	s.mu.Lock()
	u := s.users[normalizeEmail(body.Email)]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	s.tokenResponse(c, u)
}

func (s *Server) rotate(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)
	token := strings.TrimSpace(body.RefreshToken)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Refresh token required"})
		return
	}
	s.mu.Lock()
	userID, ok := s.refresh[token]
	delete(s.refresh, token)
	var u *user
	if ok {
		u = s.userByIDLocked(userID)
	}
	s.mu.Unlock()
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired refresh token"})
		return
	}
	s.tokenResponse(c, u)
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	u := s.userByIDLocked(c.GetInt("user_id"))
	s.mu.Unlock()
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) uploadFit(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "FIT file required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	s.mu.Lock()
	dup := s.uploads[key]
	s.uploads[key] = true
	id := len(s.uploads)
	s.mu.Unlock()
	if dup {
		c.JSON(http.StatusConflict, gin.H{"detail": "This FIT file was already imported."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"name":     fh.Filename,
		"source":   "fit",
		"checksum": key,
		"size":     len(data),
	})
}

func (s *Server) analyzePhoto(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Image file required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":      "food",
		"filename":  fh.Filename,
		"size":      fh.Size,
		"meal_type": c.PostForm("meal_type"),
	})
}

// echo answers any other protected route: 204 for DELETE, otherwise the request
// as JSON.
func (s *Server) echo(c *gin.Context) {
	if c.Request.Method == http.MethodDelete {
		c.Status(http.StatusNoContent)
		return
	}
	body, _ := io.ReadAll(c.Request.Body)
	var parsed any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	c.JSON(http.StatusOK, gin.H{
		"method": c.Request.Method,
		"path":   strings.TrimPrefix(c.Request.URL.Path, Prefix),
		"query":  c.Request.URL.RawQuery,
		"body":   parsed,
	})
}
