// Package storetest runs an in-memory implementation of the store's REST
// command protocol behind httptest, so every package can exercise real
// round trips without a live store. The server's clock can be advanced to
// test TTL expiry without sleeping.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
)

// Token is the bearer token the test server accepts.
const Token = "storetest-token"

// Message is a PUBLISH observed by the server.
type Message struct {
	Channel string
	Payload string
}

// Server is an in-memory store speaking the REST command protocol.
type Server struct {
	mu        sync.Mutex
	strings   map[string]string
	hashes    map[string]map[string]string
	sets      map[string]map[string]struct{}
	expires   map[string]time.Time
	published []Message
	offset    time.Duration
	failCode  int

	httpSrv *httptest.Server
}

// New starts a fake store server. Callers own Close.
func New() *Server {
	s := &Server{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
		expires: make(map[string]time.Time),
	}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Config returns an executor configuration pointing at this server.
func (s *Server) Config() *executor.Config {
	return &executor.Config{RestURL: s.httpSrv.URL, RestToken: Token}
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down. Requests after Close fail at the transport
// level, which is how tests simulate an unreachable store.
func (s *Server) Close() { s.httpSrv.Close() }

// Advance shifts the server's notion of now, expiring keys whose TTL has
// lapsed within the skipped interval.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

// FailWith makes every subsequent request return the given HTTP status.
// Passing 0 restores normal behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode = status
}

// Published returns all PUBLISH messages observed so far.
func (s *Server) Published() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.published))
	copy(out, s.published)
	return out
}

// TTLOf returns the remaining TTL of a key, or false if it has none.
func (s *Server) TTLOf(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[key]
	if !ok {
		return 0, false
	}
	return exp.Sub(s.now()), true
}

type commandResult struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCode != 0 {
		http.Error(w, "store unavailable", s.failCode)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if strings.HasSuffix(r.URL.Path, "/pipeline") {
		var commands [][]string
		if err := json.NewDecoder(r.Body).Decode(&commands); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		results := make([]commandResult, len(commands))
		for i, cmd := range commands {
			results[i] = s.eval(cmd)
		}
		json.NewEncoder(w).Encode(results)
		return
	}

	var command []string
	if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(s.eval(command))
}

func (s *Server) now() time.Time {
	return time.Now().Add(s.offset)
}

func (s *Server) expired(key string) bool {
	exp, ok := s.expires[key]
	return ok && s.now().After(exp)
}

// purge lazily removes a key if its TTL lapsed.
func (s *Server) purge(key string) {
	if s.expired(key) {
		delete(s.strings, key)
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.expires, key)
	}
}

func (s *Server) exists(key string) bool {
	s.purge(key)
	if _, ok := s.strings[key]; ok {
		return true
	}
	if _, ok := s.hashes[key]; ok {
		return true
	}
	if _, ok := s.sets[key]; ok {
		return true
	}
	return false
}

func (s *Server) eval(cmd []string) commandResult {
	if len(cmd) == 0 {
		return commandResult{Error: "ERR empty command"}
	}
	name := strings.ToUpper(cmd[0])
	args := cmd[1:]

	switch name {
	case "GET", "TTL", "HGETALL", "HLEN", "SMEMBERS":
		if len(args) < 1 {
			return commandResult{Error: "ERR wrong number of arguments for '" + strings.ToLower(name) + "' command"}
		}
	}

	switch name {
	case "PING":
		return commandResult{Result: "PONG"}
	case "SET":
		return s.evalSet(args)
	case "GET":
		if len(args) != 1 {
			return commandResult{Error: "ERR wrong number of arguments for 'get' command"}
		}
		s.purge(args[0])
		v, ok := s.strings[args[0]]
		if !ok {
			return commandResult{Result: nil}
		}
		return commandResult{Result: v}
	case "DEL":
		count := 0
		for _, key := range args {
			if s.exists(key) {
				count++
			}
			delete(s.strings, key)
			delete(s.hashes, key)
			delete(s.sets, key)
			delete(s.expires, key)
		}
		return commandResult{Result: count}
	case "EXISTS":
		count := 0
		for _, key := range args {
			if s.exists(key) {
				count++
			}
		}
		return commandResult{Result: count}
	case "EXPIRE":
		if len(args) != 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'expire' command"}
		}
		secs, err := strconv.Atoi(args[1])
		if err != nil {
			return commandResult{Error: "ERR value is not an integer or out of range"}
		}
		if !s.exists(args[0]) {
			return commandResult{Result: 0}
		}
		s.expires[args[0]] = s.now().Add(time.Duration(secs) * time.Second)
		return commandResult{Result: 1}
	case "TTL":
		if !s.exists(args[0]) {
			return commandResult{Result: -2}
		}
		exp, ok := s.expires[args[0]]
		if !ok {
			return commandResult{Result: -1}
		}
		return commandResult{Result: int(exp.Sub(s.now()).Seconds())}
	case "INCR":
		if len(args) != 1 {
			return commandResult{Error: "ERR wrong number of arguments for 'incr' command"}
		}
		s.purge(args[0])
		n := int64(0)
		if v, ok := s.strings[args[0]]; ok {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return commandResult{Error: "ERR value is not an integer or out of range"}
			}
			n = parsed
		}
		n++
		s.strings[args[0]] = strconv.FormatInt(n, 10)
		return commandResult{Result: n}
	case "MGET":
		values := make([]interface{}, len(args))
		for i, key := range args {
			s.purge(key)
			if v, ok := s.strings[key]; ok {
				values[i] = v
			}
		}
		return commandResult{Result: values}
	case "SCAN":
		return s.evalScan(args)
	case "HSET":
		if len(args) < 3 || len(args)%2 != 1 {
			return commandResult{Error: "ERR wrong number of arguments for 'hset' command"}
		}
		s.purge(args[0])
		h, ok := s.hashes[args[0]]
		if !ok {
			h = make(map[string]string)
			s.hashes[args[0]] = h
		}
		added := 0
		for i := 1; i < len(args); i += 2 {
			if _, exists := h[args[i]]; !exists {
				added++
			}
			h[args[i]] = args[i+1]
		}
		return commandResult{Result: added}
	case "HGET":
		if len(args) != 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'hget' command"}
		}
		s.purge(args[0])
		v, ok := s.hashes[args[0]][args[1]]
		if !ok {
			return commandResult{Result: nil}
		}
		return commandResult{Result: v}
	case "HDEL":
		if len(args) < 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'hdel' command"}
		}
		s.purge(args[0])
		count := 0
		for _, field := range args[1:] {
			if _, ok := s.hashes[args[0]][field]; ok {
				delete(s.hashes[args[0]], field)
				count++
			}
		}
		return commandResult{Result: count}
	case "HGETALL":
		s.purge(args[0])
		flat := make([]interface{}, 0, len(s.hashes[args[0]])*2)
		for field, value := range s.hashes[args[0]] {
			flat = append(flat, field, value)
		}
		return commandResult{Result: flat}
	case "HLEN":
		s.purge(args[0])
		return commandResult{Result: len(s.hashes[args[0]])}
	case "SADD":
		if len(args) < 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'sadd' command"}
		}
		s.purge(args[0])
		set, ok := s.sets[args[0]]
		if !ok {
			set = make(map[string]struct{})
			s.sets[args[0]] = set
		}
		added := 0
		for _, member := range args[1:] {
			if _, exists := set[member]; !exists {
				set[member] = struct{}{}
				added++
			}
		}
		return commandResult{Result: added}
	case "SREM":
		if len(args) < 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'srem' command"}
		}
		s.purge(args[0])
		removed := 0
		for _, member := range args[1:] {
			if _, ok := s.sets[args[0]][member]; ok {
				delete(s.sets[args[0]], member)
				removed++
			}
		}
		return commandResult{Result: removed}
	case "SMEMBERS":
		s.purge(args[0])
		members := make([]interface{}, 0, len(s.sets[args[0]]))
		for member := range s.sets[args[0]] {
			members = append(members, member)
		}
		return commandResult{Result: members}
	case "PUBLISH":
		if len(args) != 2 {
			return commandResult{Error: "ERR wrong number of arguments for 'publish' command"}
		}
		s.published = append(s.published, Message{Channel: args[0], Payload: args[1]})
		return commandResult{Result: 0}
	default:
		return commandResult{Error: "ERR unknown command '" + cmd[0] + "'"}
	}
}

func (s *Server) evalSet(args []string) commandResult {
	if len(args) < 2 {
		return commandResult{Error: "ERR wrong number of arguments for 'set' command"}
	}
	key, value := args[0], args[1]
	var expiry *time.Time
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "EX":
			if i+1 >= len(args) {
				return commandResult{Error: "ERR syntax error"}
			}
			secs, err := strconv.Atoi(args[i+1])
			if err != nil {
				return commandResult{Error: "ERR value is not an integer or out of range"}
			}
			t := s.now().Add(time.Duration(secs) * time.Second)
			expiry = &t
			i++
		default:
			return commandResult{Error: "ERR syntax error"}
		}
	}
	delete(s.hashes, key)
	delete(s.sets, key)
	s.strings[key] = value
	if expiry != nil {
		s.expires[key] = *expiry
	} else {
		delete(s.expires, key)
	}
	return commandResult{Result: "OK"}
}

// evalScan walks the whole keyspace in one page; the returned cursor is
// always "0", which terminates the client's cursor loop after one pass.
func (s *Server) evalScan(args []string) commandResult {
	pattern := "*"
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "MATCH":
			if i+1 >= len(args) {
				return commandResult{Error: "ERR syntax error"}
			}
			pattern = args[i+1]
			i++
		case "COUNT":
			i++
		default:
			return commandResult{Error: "ERR syntax error"}
		}
	}

	matched := make([]interface{}, 0)
	for key := range s.allKeys() {
		if ok, _ := path.Match(pattern, key); ok {
			matched = append(matched, key)
		}
	}
	return commandResult{Result: []interface{}{"0", matched}}
}

func (s *Server) allKeys() map[string]bool {
	keys := make(map[string]bool)
	for k := range s.strings {
		if !s.expired(k) {
			keys[k] = true
		}
	}
	for k := range s.hashes {
		if !s.expired(k) {
			keys[k] = true
		}
	}
	for k := range s.sets {
		if !s.expired(k) {
			keys[k] = true
		}
	}
	return keys
}
