// Package zabbixserver is an in-memory Zabbix JSON-RPC API for tests. It
// implements the handful of methods the user reconciler needs and enforces
// the version dependent field names, so clients that pick the wrong name for
// a given API version fail the same way they would against a real server.
package zabbixserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-version"
)

const (
	DefaultVersion  = "6.0.0"
	DefaultUser     = "Admin"
	DefaultPassword = "zabbix"

	codeInvalidParams = -32602
	codeServerError   = -32500
)

// User is the stored form of a user account.
type User struct {
	UserID   string
	Alias    string
	Password string
	Fields   map[string]string
	Groups   []string
	Medias   []map[string]any
}

var userDefaults = map[string]string{
	"name":          "",
	"surname":       "",
	"autologin":     "0",
	"autologout":    "15m",
	"lang":          "en_GB",
	"refresh":       "30s",
	"rows_per_page": "50",
	"theme":         "default",
	"url":           "",
	"type":          "1",
}

type Server struct {
	*httptest.Server

	version *version.Version

	mu          sync.Mutex
	calls       []string
	sessions    map[string]bool
	apiTokens   map[string]bool
	users       map[string]*User
	nextUserID  int
	nextSession int
	failures    map[string]*rpcError
	bearerSeen  bool
	bodySeen    bool

	basicUser     string
	basicPassword string
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      int64           `json:"id"`
	Auth    string          `json:"auth"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// New starts a fake server reporting apiVersion. It is closed when the test
// finishes.
func New(t testing.TB, apiVersion string) *Server {
	t.Helper()

	s := &Server{
		version:    version.Must(version.NewVersion(apiVersion)),
		sessions:   make(map[string]bool),
		apiTokens:  make(map[string]bool),
		users:      make(map[string]*User),
		nextUserID: 1,
		failures:   make(map[string]*rpcError),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

func (s *Server) aliasField() string {
	if s.version.GreaterThanOrEqual(version.Must(version.NewVersion("5.4"))) {
		return "username"
	}
	return "alias"
}

func (s *Server) typeField() string {
	if s.version.GreaterThanOrEqual(version.Must(version.NewVersion("5.2"))) {
		return "roleid"
	}
	return "type"
}

func (s *Server) mediasField() string {
	if s.version.GreaterThanOrEqual(version.Must(version.NewVersion("5.4"))) {
		return "medias"
	}
	return "user_medias"
}

// AddAPIToken registers a token that authenticates without user.login.
func (s *Server) AddAPIToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiTokens[token] = true
}

// RequireBasicAuth rejects requests without these HTTP basic credentials,
// like a web server protecting the frontend would.
func (s *Server) RequireBasicAuth(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basicUser = user
	s.basicPassword = password
}

// FailMethod makes every later call of method return an API error.
func (s *Server) FailMethod(method, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = &rpcError{Code: codeServerError, Message: "Internal error.", Data: data}
}

// Calls returns the methods invoked so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// MutatingCalls returns the create, update and delete calls made so far.
func (s *Server) MutatingCalls() []string {
	var result []string
	for _, call := range s.Calls() {
		switch call {
		case "user.create", "user.update", "user.delete":
			result = append(result, call)
		}
	}
	return result
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// ActiveSessions is the number of sessions opened by user.login and not yet
// closed.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// AuthModes reports whether the bearer header and the body auth field were
// used by any authenticated call.
func (s *Server) AuthModes() (bearer bool, body bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bearerSeen, s.bodySeen
}

// User returns a copy of the stored user with alias, or nil.
func (s *Server) User(alias string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[alias]
	if !ok {
		return nil
	}

	clone := *user
	clone.Fields = make(map[string]string, len(user.Fields))
	for key, value := range user.Fields {
		clone.Fields[key] = value
	}
	clone.Groups = append([]string(nil), user.Groups...)
	clone.Medias = append([]map[string]any(nil), user.Medias...)
	return &clone
}

func (s *Server) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// SeedUser stores a user directly, bypassing the API. Fields missing from
// fields get the server defaults.
func (s *Server) SeedUser(alias string, fields map[string]string, groups []string, medias []map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &User{
		UserID: strconv.Itoa(s.nextUserID),
		Alias:  alias,
		Fields: make(map[string]string),
		Groups: groups,
		Medias: medias,
	}
	s.nextUserID++

	for key, value := range userDefaults {
		user.Fields[key] = value
	}
	for key, value := range fields {
		user.Fields[key] = value
	}

	s.users[alias] = user
	return user.UserID
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/api_jsonrpc.php") {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	basicUser, basicPassword := s.basicUser, s.basicPassword
	s.mu.Unlock()

	if len(basicUser) > 0 {
		user, password, ok := r.BasicAuth()
		if !ok || user != basicUser || password != basicPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="zabbix"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 0, &rpcError{Code: -32700, Message: "Parse error.", Data: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req.Method)

	if failure, ok := s.failures[req.Method]; ok {
		writeError(w, req.ID, failure)
		return
	}

	if req.Method != "apiinfo.version" && req.Method != "user.login" {
		token := req.Auth
		if bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); bearer != r.Header.Get("Authorization") {
			if s.version.LessThan(version.Must(version.NewVersion("6.4"))) {
				writeError(w, req.ID, &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: "Not authorised."})
				return
			}
			token = bearer
			s.bearerSeen = true
		} else if len(token) > 0 {
			s.bodySeen = true
		}

		if !s.sessions[token] && !s.apiTokens[token] {
			writeError(w, req.ID, &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: "Session terminated, re-login, please."})
			return
		}
		if req.Method == "user.logout" {
			delete(s.sessions, token)
		}
	}

	result, rpcErr := s.dispatch(req)
	if rpcErr != nil {
		writeError(w, req.ID, rpcErr)
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "apiinfo.version":
		return s.version.String(), nil
	case "user.login":
		return s.login(req.Params)
	case "user.logout":
		return true, nil
	case "user.get":
		return s.getUsers(req.Params)
	case "user.create":
		return s.createUser(req.Params)
	case "user.update":
		return s.updateUser(req.Params)
	case "user.delete":
		return s.deleteUsers(req.Params)
	}
	return nil, &rpcError{Code: -32601, Message: "Method not found.", Data: fmt.Sprintf("Incorrect API %q.", req.Method)}
}

func invalidParams(format string, args ...any) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: fmt.Sprintf(format, args...)}
}

func (s *Server) login(raw json.RawMessage) (any, *rpcError) {
	var params map[string]string
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("%s", err.Error())
	}

	field := "user"
	if s.aliasField() == "username" {
		field = "username"
	}

	if params[field] != DefaultUser || params["password"] != DefaultPassword {
		return nil, invalidParams("Incorrect user name or password or account is temporarily blocked.")
	}

	s.nextSession++
	token := fmt.Sprintf("session-%d", s.nextSession)
	s.sessions[token] = true
	return token, nil
}

func (s *Server) getUsers(raw json.RawMessage) (any, *rpcError) {
	var params struct {
		Filter map[string]string `json:"filter"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("%s", err.Error())
	}

	if _, ok := params.Filter[otherAliasField(s.aliasField())]; ok {
		return nil, invalidParams("Incorrect filter field %q.", otherAliasField(s.aliasField()))
	}

	aliases := make([]string, 0, len(s.users))
	for alias := range s.users {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	result := []map[string]any{}
	for _, alias := range aliases {
		if wanted, ok := params.Filter[s.aliasField()]; ok && wanted != alias {
			continue
		}
		result = append(result, s.render(s.users[alias]))
	}
	return result, nil
}

func otherAliasField(field string) string {
	if field == "username" {
		return "alias"
	}
	return "username"
}

func (s *Server) render(user *User) map[string]any {
	out := map[string]any{
		"userid":       user.UserID,
		s.aliasField(): user.Alias,
		s.typeField():  user.Fields["type"],
	}

	for key, value := range user.Fields {
		if key == "type" {
			continue
		}
		out[key] = value
	}

	groups := make([]map[string]string, 0, len(user.Groups))
	for _, id := range user.Groups {
		groups = append(groups, map[string]string{"usrgrpid": id})
	}
	out["usrgrps"] = groups

	medias := make([]map[string]any, 0, len(user.Medias))
	for i, media := range user.Medias {
		rendered := map[string]any{"mediaid": strconv.Itoa(i + 1)}
		for key, value := range media {
			rendered[key] = value
		}
		// Non e-mail media come back as a plain string
		if sendto, ok := rendered["sendto"].([]any); ok && rendered["mediatypeid"] != "1" && len(sendto) == 1 {
			rendered["sendto"] = sendto[0]
		}
		medias = append(medias, rendered)
	}
	out["medias"] = medias

	return out
}

// applyFields copies the writable user fields from params and rejects the
// field names that belong to another API version.
func (s *Server) applyFields(user *User, params map[string]any) *rpcError {
	for _, wrong := range []string{otherAliasField(s.aliasField()), otherTypeField(s.typeField()), otherMediasField(s.mediasField())} {
		if _, ok := params[wrong]; ok {
			return invalidParams("Invalid parameter \"/1\": unexpected parameter \"%s\".", wrong)
		}
	}

	for key, value := range params {
		switch key {
		case "userid", "passwd", "usrgrps", s.mediasField():
			continue
		case s.aliasField():
			user.Alias = fmt.Sprint(value)
		case s.typeField():
			user.Fields["type"] = fmt.Sprint(value)
		default:
			if _, known := userDefaults[key]; !known {
				return invalidParams("Invalid parameter \"/1\": unexpected parameter \"%s\".", key)
			}
			user.Fields[key] = fmt.Sprint(value)
		}
	}

	if raw, ok := params["usrgrps"]; ok {
		groups, _ := raw.([]any)
		user.Groups = nil
		for _, group := range groups {
			if entry, ok := group.(map[string]any); ok {
				user.Groups = append(user.Groups, fmt.Sprint(entry["usrgrpid"]))
			}
		}
	}

	if raw, ok := params[s.mediasField()]; ok {
		medias, _ := raw.([]any)
		user.Medias = nil
		for _, media := range medias {
			if entry, ok := media.(map[string]any); ok {
				user.Medias = append(user.Medias, entry)
			}
		}
	}

	return nil
}

func otherTypeField(field string) string {
	if field == "roleid" {
		return "type"
	}
	return "roleid"
}

func otherMediasField(field string) string {
	if field == "medias" {
		return "user_medias"
	}
	return "medias"
}

func (s *Server) createUser(raw json.RawMessage) (any, *rpcError) {
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("%s", err.Error())
	}

	alias, _ := params[s.aliasField()].(string)
	if len(alias) == 0 {
		return nil, invalidParams("Invalid parameter \"/1\": the parameter \"%s\" is missing.", s.aliasField())
	}
	if _, exists := s.users[alias]; exists {
		return nil, invalidParams("User with username \"%s\" already exists.", alias)
	}

	user := &User{
		UserID: strconv.Itoa(s.nextUserID),
		Fields: make(map[string]string),
	}
	for key, value := range userDefaults {
		user.Fields[key] = value
	}

	if err := s.applyFields(user, params); err != nil {
		return nil, err
	}
	if password, ok := params["passwd"].(string); ok {
		user.Password = password
	}

	s.nextUserID++
	s.users[user.Alias] = user

	return map[string]any{"userids": []string{user.UserID}}, nil
}

func (s *Server) findByID(userID string) *User {
	for _, user := range s.users {
		if user.UserID == userID {
			return user
		}
	}
	return nil
}

func (s *Server) updateUser(raw json.RawMessage) (any, *rpcError) {
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("%s", err.Error())
	}

	userID := fmt.Sprint(params["userid"])
	user := s.findByID(userID)
	if user == nil {
		return nil, invalidParams("No permissions to referred object or it does not exist!")
	}

	previousAlias := user.Alias
	if err := s.applyFields(user, params); err != nil {
		return nil, err
	}
	if password, ok := params["passwd"].(string); ok {
		user.Password = password
	}

	if previousAlias != user.Alias {
		delete(s.users, previousAlias)
		s.users[user.Alias] = user
	}

	return map[string]any{"userids": []string{user.UserID}}, nil
}

func (s *Server) deleteUsers(raw json.RawMessage) (any, *rpcError) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, invalidParams("%s", err.Error())
	}

	for _, id := range ids {
		user := s.findByID(id)
		if user == nil {
			return nil, invalidParams("No permissions to referred object or it does not exist!")
		}
		delete(s.users, user.Alias)
	}

	return map[string]any{"userids": ids}, nil
}

func writeResult(w http.ResponseWriter, id int64, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"result":  result,
		"id":      id,
	})
}

func writeError(w http.ResponseWriter, id int64, rpcErr *rpcError) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error":   rpcErr,
		"id":      id,
	})
}
