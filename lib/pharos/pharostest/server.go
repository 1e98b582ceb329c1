// Package pharostest provides an in-process print server for tests.
package pharostest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

const (
	tokenCookie   = "PharosAPI.X-PHAROS-USER-TOKEN"
	userURICookie = "PharosAPI.X-PHAROS-USER-URI"
)

type Upload struct {
	// form names of the multipart parts, in the order they were sent
	Parts       []string
	Metadata    string
	FileName    string
	ContentType string
	Content     []byte
}

type job struct {
	location string
	name     string
	polls    int
}

// Server imitates the logon, upload and job list endpoints of the print
// server. Fields may be changed between requests.
type Server struct {
	EID      string
	Password string
	// the token the server accepts, logging on with credentials replaces it
	Token   string
	UserID  string
	Balance float64
	// cost and page count reported for every processed job
	Cost  float64
	Pages int
	// job list requests needed before a job reaches FinalState
	PollsUntilDone int
	FinalState     string
	// path of the session cookies the server sets
	CookiePath string

	lock         sync.Mutex
	httpServer   *httptest.Server
	uploads      []Upload
	jobs         []*job
	logonCount   int
	keepLoggedIn []string
	tokensSent   [][]string
	tokenCount   int
}

func NewServer() *Server {
	s := &Server{
		EID:            "abc123",
		Password:       "hunter2",
		UserID:         "42",
		Balance:        10,
		Cost:           0.5,
		Pages:          1,
		PollsUntilDone: 1,
		FinalState:     "Completed",
		CookiePath:     "/",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /PharosAPI/logon", s.handleLogon)
	mux.HandleFunc("POST /PharosAPI/users/{id}/printjobs", s.handleUpload)
	mux.HandleFunc("GET /PharosAPI/users/{id}/printjobs", s.handleJobs)
	s.httpServer = httptest.NewServer(mux)
	return s
}

// URL is the base url clients should be configured with.
func (s *Server) URL() string {
	return s.httpServer.URL + "/PharosAPI"
}

func (s *Server) Close() {
	s.httpServer.Close()
}

func (s *Server) Uploads() []Upload {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) LogonCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.logonCount
}

// KeepLoggedIn returns the KeepMeLoggedIn parameter of every credential
// logon.
func (s *Server) KeepLoggedIn() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.keepLoggedIn...)
}

// TokensSent returns the session token cookies of every request, in the
// order the requests arrived.
func (s *Server) TokensSent() [][]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([][]string, len(s.tokensSent))
	for i, tokens := range s.tokensSent {
		out[i] = append([]string(nil), tokens...)
	}
	return out
}

func (s *Server) recordTokens(r *http.Request) {
	tokens := []string{}
	for _, cookie := range r.Cookies() {
		if cookie.Name == tokenCookie {
			tokens = append(tokens, cookie.Value)
		}
	}
	s.tokensSent = append(s.tokensSent, tokens)
}

func (s *Server) userURI() string {
	return "/users/" + s.UserID
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]any{
		"Status":      status,
		"UserMessage": message,
		"ErrorCode":   fmt.Sprintf("E%d", status),
		"Request":     r.URL.String(),
	})
}

func (s *Server) setSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: tokenCookie, Value: s.Token, Path: s.CookiePath})
	http.SetCookie(w, &http.Cookie{Name: userURICookie, Value: s.userURI(), Path: s.CookiePath})
}

func (s *Server) checkCredentials(header string) bool {
	encoded, ok := strings.CutPrefix(header, "PHAROS-USER ")
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	eid, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	eid, err = url.PathUnescape(eid)
	if err != nil {
		return false
	}
	password, err = url.PathUnescape(password)
	if err != nil {
		return false
	}
	return eid == s.EID && password == s.Password
}

func (s *Server) authorized(r *http.Request) bool {
	cookie, err := r.Cookie(tokenCookie)
	return err == nil && s.Token != "" && cookie.Value == s.Token
}

func (s *Server) handleLogon(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.recordTokens(r)
	s.logonCount++

	if header := r.Header.Get("X-Authorization"); header != "" {
		if !s.checkCredentials(header) {
			writeError(w, r, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		s.keepLoggedIn = append(s.keepLoggedIn, r.URL.Query().Get("KeepMeLoggedIn"))
		s.tokenCount++
		s.Token = fmt.Sprintf("token-%d", s.tokenCount)
		s.setSessionCookies(w)
		writeJSON(w, http.StatusOK, map[string]any{
			"Balance": map[string]any{"Amount": s.Balance},
		})
		return
	}

	if !s.authorized(r) {
		writeError(w, r, http.StatusUnauthorized, "Your session has expired.")
		return
	}
	s.setSessionCookies(w)
	// the real server is inconsistent about amounts, send a string here
	writeJSON(w, http.StatusOK, map[string]any{
		"Balance": map[string]any{"Amount": fmt.Sprintf("%.2f", s.Balance)},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.recordTokens(r)

	if !s.authorized(r) || r.PathValue("id") != s.UserID {
		writeError(w, r, http.StatusUnauthorized, "Not logged in.")
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upload := Upload{}
	hasContent := false
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		upload.Parts = append(upload.Parts, part.FormName())
		switch part.FormName() {
		case "MetaData":
			upload.Metadata = string(data)
		case "content":
			hasContent = true
			upload.FileName = part.FileName()
			upload.ContentType = part.Header.Get("Content-Type")
			upload.Content = data
		}
	}
	if !hasContent {
		writeError(w, r, http.StatusBadRequest, "missing content")
		return
	}

	s.uploads = append(s.uploads, upload)
	created := &job{
		location: fmt.Sprintf("%s/printjobs/%d", s.userURI(), len(s.uploads)),
		name:     upload.FileName,
	}
	s.jobs = append(s.jobs, created)

	writeJSON(w, http.StatusCreated, map[string]any{
		"Location": created.location,
		"Name":     created.name,
		"Activity": map[string]any{"State": "Processing"},
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.recordTokens(r)

	if !s.authorized(r) || r.PathValue("id") != s.UserID {
		writeError(w, r, http.StatusUnauthorized, "Not logged in.")
		return
	}

	items := []map[string]any{}
	for _, j := range s.jobs {
		j.polls++
		item := map[string]any{
			"Location": j.location,
			"Name":     j.name,
			"Activity": map[string]any{"State": "Processing"},
		}
		if j.polls >= s.PollsUntilDone {
			item["Activity"] = map[string]any{"State": s.FinalState}
			item["Cost"] = s.Cost
			item["Pages"] = s.Pages
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"Items": items})
}
