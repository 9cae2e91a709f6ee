// Package platformtest runs an in-process webtask cluster for tests.
//
// The fake cluster signs real HS256 tokens, keeps named webtasks and cron jobs
// in memory, and "executes" code by looking it up in a table of Go handlers.
// It implements only what the SDK talks to.
package platformtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mehreencs87/sandboxjs/models"
)

// EchoIDSource returns ctx.data.id from the query string.
const EchoIDSource = "module.exports = function (ctx, cb) { cb(null, ctx.data.id); }"

// Default credentials of a new Platform
const (
	DefaultToken     = "sandbox-token"
	DefaultContainer = "tenant-1"
)

// Handler executes a webtask. data holds the query parameters.
type Handler func(data map[string]string, body []byte) (status int, response string)

// Platform is a fake webtask cluster backed by httptest.Server.
type Platform struct {
	Server    *httptest.Server
	Token     string
	Container string

	secret []byte

	mu          sync.Mutex
	nextID      int
	handlers    map[string]Handler
	webtasks    map[string]string // container/name -> token
	cronJobs    map[string]models.CronJobDescriptor
	history     map[string][]models.HistoryRecord
	revoked     map[string]bool
	logs        []models.LogEvent
	historyReqs []url.Values
	overrides   map[string]http.HandlerFunc
}

// New starts a Platform and stops it when t finishes.
func New(t testing.TB) *Platform {
	t.Helper()

	p := &Platform{
		Token:     DefaultToken,
		Container: DefaultContainer,
		secret:    []byte("platformtest-secret"),
		handlers:  map[string]Handler{},
		webtasks:  map[string]string{},
		cronJobs:  map[string]models.CronJobDescriptor{},
		history:   map[string][]models.HistoryRecord{},
		revoked:   map[string]bool{},
		overrides: map[string]http.HandlerFunc{},
	}
	p.Handle(EchoIDSource, func(data map[string]string, _ []byte) (int, string) {
		return http.StatusOK, data["id"]
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tokens/issue", p.authorized(p.issueToken))
	mux.HandleFunc("GET /api/tokens/inspect", p.authorized(p.inspectToken))
	mux.HandleFunc("POST /api/tokens/revoke", p.authorized(p.revokeToken))
	mux.HandleFunc("PUT /api/webtask/{container}/{name}", p.authorized(p.putWebtask))
	mux.HandleFunc("GET /api/webtask/{container}/{name}", p.authorized(p.getWebtask))
	mux.HandleFunc("DELETE /api/webtask/{container}/{name}", p.authorized(p.deleteWebtask))
	mux.HandleFunc("/api/run/{container}/{id}", p.run)
	mux.HandleFunc("GET /api/cron/{container}", p.authorized(p.listCronJobs))
	mux.HandleFunc("PUT /api/cron/{container}/{name}", p.authorized(p.putCronJob))
	mux.HandleFunc("GET /api/cron/{container}/{name}", p.authorized(p.getCronJob))
	mux.HandleFunc("DELETE /api/cron/{container}/{name}", p.authorized(p.deleteCronJob))
	mux.HandleFunc("GET /api/cron/{container}/{name}/history", p.authorized(p.cronHistory))
	mux.HandleFunc("PUT /api/cron/{container}/{name}/state", p.authorized(p.setCronState))
	mux.HandleFunc("GET /api/logs/tenant/{container}", p.authorized(p.streamLogs))

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		h := p.overrides[r.Method+" "+r.URL.Path]
		p.mu.Unlock()
		if h != nil {
			h(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.Server.Close)
	return p
}

// URL is the cluster base URL
func (p *Platform) URL() string {
	return p.Server.URL
}

// Host is the cluster URL without its scheme, as cron descriptors carry it
func (p *Platform) Host() string {
	return strings.TrimPrefix(p.Server.URL, "http://")
}

// Handle makes code (inline source or a code URL) executable.
func (p *Platform) Handle(code string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[code] = h
}

// AddHistory appends past runs to a cron job.
func (p *Platform) AddHistory(container, name string, records ...models.HistoryRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := container + "/" + name
	p.history[key] = append(p.history[key], records...)
}

// AddLogs queues events for the next log stream.
func (p *Platform) AddLogs(events ...models.LogEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, events...)
}

// HistoryRequests returns the query strings of every history request seen.
func (p *Platform) HistoryRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.historyReqs...)
}

// Override replaces the cluster's handling of method on path, for simulating
// failures and malformed replies.
func (p *Platform) Override(method, path string, h http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[method+" "+path] = h
}

// Revoked returns every token revoked so far.
func (p *Platform) Revoked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	revoked := make([]string, 0, len(p.revoked))
	for raw := range p.revoked {
		revoked = append(revoked, raw)
	}
	return revoked
}

// Sign mints a token signed like the cluster's own.
func (p *Platform) Sign(claims jwt.MapClaims) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		panic(err)
	}
	return raw
}

func (p *Platform) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+p.Token {
			writeError(w, http.StatusUnauthorized, "invalid sandbox token")
			return
		}
		if c := r.PathValue("container"); c != "" && c != p.Container {
			writeError(w, http.StatusForbidden, "token not valid for container "+c)
			return
		}
		next(w, r)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (p *Platform) verify(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revoked[raw] {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

func (p *Platform) issueToken(w http.ResponseWriter, r *http.Request) {
	claims := jwt.MapClaims{}
	if err := json.NewDecoder(r.Body).Decode(&claims); err != nil {
		writeError(w, http.StatusBadRequest, "invalid claims")
		return
	}

	p.mu.Lock()
	p.nextID++
	claims["jti"] = fmt.Sprintf("%08x", p.nextID)
	p.mu.Unlock()
	claims["iat"] = time.Now().Unix()
	claims["iss"] = "platformtest"

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, p.Sign(claims))
}

func (p *Platform) inspectToken(w http.ResponseWriter, r *http.Request) {
	claims, err := p.verify(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

func (p *Platform) revokeToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	p.mu.Lock()
	p.revoked[body.Token] = true
	p.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (p *Platform) putWebtask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	container, name := r.PathValue("container"), r.PathValue("name")

	p.mu.Lock()
	p.webtasks[container+"/"+name] = body.Token
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, models.TaskInfo{Container: container, Name: name, Token: body.Token})
}

func (p *Platform) getWebtask(w http.ResponseWriter, r *http.Request) {
	container, name := r.PathValue("container"), r.PathValue("name")

	p.mu.Lock()
	raw, ok := p.webtasks[container+"/"+name]
	p.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such webtask")
		return
	}
	writeJSON(w, http.StatusOK, models.TaskInfo{Container: container, Name: name, Token: raw})
}

func (p *Platform) deleteWebtask(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("container") + "/" + r.PathValue("name")

	p.mu.Lock()
	_, ok := p.webtasks[key]
	delete(p.webtasks, key)
	p.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such webtask")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *Platform) run(w http.ResponseWriter, r *http.Request) {
	container, id := r.PathValue("container"), r.PathValue("id")

	p.mu.Lock()
	named, isNamed := p.webtasks[container+"/"+id]
	p.mu.Unlock()

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if isNamed {
		raw = named
	}
	claims, err := p.verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !isNamed && claims["jti"] != id {
		writeError(w, http.StatusNotFound, "no webtask at "+id)
		return
	}

	code, _ := claims["code"].(string)
	if code == "" {
		code, _ = claims["url"].(string)
	}
	p.mu.Lock()
	h, ok := p.handlers[code]
	p.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "code could not be compiled")
		return
	}

	data := map[string]string{}
	for k := range r.URL.Query() {
		data[k] = r.URL.Query().Get(k)
	}
	body, _ := io.ReadAll(r.Body)

	status, response := h(data, body)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	io.WriteString(w, response)
}

func (p *Platform) putCronJob(w http.ResponseWriter, r *http.Request) {
	var req models.CronJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Schedule == "" {
		writeError(w, http.StatusBadRequest, "token and schedule are required")
		return
	}
	if _, err := p.verify(req.Token); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := req.State
	if state == "" {
		state = models.CronStateActive
	}
	job := models.CronJobDescriptor{
		Container:       r.PathValue("container"),
		Name:            r.PathValue("name"),
		Schedule:        req.Schedule,
		NextScheduledAt: time.Now().Add(time.Minute).UTC().Truncate(time.Second),
		Token:           req.Token,
		ClusterURL:      p.Host(),
		State:           state,
	}

	p.mu.Lock()
	p.cronJobs[job.Container+"/"+job.Name] = job
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, job)
}

func (p *Platform) listCronJobs(w http.ResponseWriter, r *http.Request) {
	container := r.PathValue("container")

	p.mu.Lock()
	jobs := []models.CronJobDescriptor{}
	for _, job := range p.cronJobs {
		if job.Container == container {
			jobs = append(jobs, job)
		}
	}
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, jobs)
}

func (p *Platform) lookupCronJob(w http.ResponseWriter, r *http.Request) (models.CronJobDescriptor, bool) {
	p.mu.Lock()
	job, ok := p.cronJobs[r.PathValue("container")+"/"+r.PathValue("name")]
	p.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such cron job")
	}
	return job, ok
}

func (p *Platform) getCronJob(w http.ResponseWriter, r *http.Request) {
	if job, ok := p.lookupCronJob(w, r); ok {
		writeJSON(w, http.StatusOK, job)
	}
}

func (p *Platform) deleteCronJob(w http.ResponseWriter, r *http.Request) {
	job, ok := p.lookupCronJob(w, r)
	if !ok {
		return
	}
	p.mu.Lock()
	delete(p.cronJobs, job.Container+"/"+job.Name)
	p.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (p *Platform) cronHistory(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.historyReqs = append(p.historyReqs, r.URL.Query())
	p.mu.Unlock()

	job, ok := p.lookupCronJob(w, r)
	if !ok {
		return
	}

	var offset, limit int
	fmt.Sscan(r.URL.Query().Get("offset"), &offset)
	fmt.Sscan(r.URL.Query().Get("limit"), &limit)

	p.mu.Lock()
	records := p.history[job.Container+"/"+job.Name]
	p.mu.Unlock()

	page := []models.HistoryRecord{}
	for i := offset; i < len(records) && len(page) < limit; i++ {
		page = append(page, records[i])
	}
	writeJSON(w, http.StatusOK, page)
}

func (p *Platform) setCronState(w http.ResponseWriter, r *http.Request) {
	job, ok := p.lookupCronJob(w, r)
	if !ok {
		return
	}
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.State == "" {
		writeError(w, http.StatusBadRequest, "state is required")
		return
	}
	job.State = body.State

	p.mu.Lock()
	p.cronJobs[job.Container+"/"+job.Name] = job
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, job)
}

func (p *Platform) streamLogs(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	events := p.logs
	p.logs = nil
	p.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
	for _, e := range events {
		data, _ := json.Marshal(e)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
}
