package fakeserver

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"

	"github.com/openslides/openslides.go/pkg/auth"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/models"
)

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.injectFailures)

	r.HandleFunc("/apps/core/version/", s.version).Methods(http.MethodGet)
	r.HandleFunc("/apps/users/login/", s.login).Methods(http.MethodPost)
	r.HandleFunc("/apps/users/logout/", s.logout).Methods(http.MethodPost)
	r.HandleFunc("/apps/users/whoami/", s.whoami).Methods(http.MethodGet)
	r.HandleFunc("/ws/", s.serveWebSocket)

	rest := r.PathPrefix("/rest/{app}/{model}").Subrouter()
	rest.Use(s.requireSession)
	rest.HandleFunc("/", s.list).Methods(http.MethodGet)
	rest.HandleFunc("/", s.create).Methods(http.MethodPost)
	rest.HandleFunc("/{id}/", s.retrieve).Methods(http.MethodGet)
	rest.HandleFunc("/{id}/", s.update).Methods(http.MethodPut, http.MethodPatch)
	rest.HandleFunc("/{id}/", s.destroy).Methods(http.MethodDelete)

	return r
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f := s.failure(r); f != nil {
			s.logger.Debug("injecting failure", "path", r.URL.Path, "status", f.StatusCode)
			writeDetail(w, f.StatusCode, f.Detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.session(r); !ok {
			writeDetail(w, http.StatusForbidden, "You are not authenticated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	v := s.Version
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"openslides_version": v,
		"openslides_license": "MIT",
		"openslides_url":     "https://openslides.com",
		"plugins":            []any{},
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(r, &creds); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[creds.Username]
	if !ok || acc.password != creds.Password || !acc.user.IsActive {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, LoginFailedDetail)
		return
	}
	sessionID := uuid.Must(uuid.NewV4()).String()
	s.sessions[sessionID] = acc.user
	s.mu.Unlock()

	token, err := auth.Sign(TokenSecret, acc.user.ID, sessionID, time.Hour)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sessionID, Path: "/", HttpOnly: true})
	w.Header().Set(auth.HeaderName, "bearer "+token)
	writeJSON(w, http.StatusOK, whoAmI(acc.user))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	u, _ := s.session(r)
	writeJSON(w, http.StatusOK, whoAmI(u))
}

func whoAmI(u *models.User) map[string]any {
	res := map[string]any{
		"user_id":       nil,
		"user":          nil,
		"guest_enabled": false,
		"auth_type":     "default",
		"permissions":   []string{},
	}
	if u != nil {
		res["user_id"] = u.ID
		res["user"] = u
	}
	return res
}

func collectionOf(r *http.Request) (models.Collection, bool) {
	vars := mux.Vars(r)
	c := models.Collection(vars["app"] + "/" + vars["model"])
	return c, models.IsRegistered(c)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionOf(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	s.mu.RLock()
	out := make([]models.Model, 0)
	for k, m := range s.records {
		if k.Collection == c {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].ModelID().Int()
		b, _ := out[j].ModelID().Int()
		return a < b
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionOf(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	m, ok := s.Record(models.NewKey(c, models.ID(mux.Vars(r)["id"])))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionOf(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	fields := map[string]any{}
	if err := decodeBody(r, &fields); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.nextID[c]++
	fields["id"] = s.nextID[c]
	s.mu.Unlock()

	m, err := buildModel(c, fields)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Push(m)
	writeJSON(w, http.StatusCreated, m)
}

// update serves PUT and PATCH. PUT replaces the record, PATCH merges the
// given fields into it.
func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionOf(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	id := models.ID(mux.Vars(r)["id"])
	old, ok := s.Record(models.NewKey(c, id))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	fields := map[string]any{}
	if r.Method == http.MethodPatch {
		var err error
		if fields, err = toFields(old); err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	patch := map[string]any{}
	if err := decodeBody(r, &patch); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	for k, v := range patch {
		fields[k] = v
	}
	fields["id"] = id

	m, err := buildModel(c, fields)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Push(m)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) destroy(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionOf(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	k := models.NewKey(c, models.ID(mux.Vars(r)["id"]))
	if _, ok := s.Record(k); !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	s.PushDelete(k)
	w.WriteHeader(http.StatusNoContent)
}

func buildModel(c models.Collection, fields map[string]any) (models.Model, error) {
	data, err := codec.JSON().Marshal(fields)
	if err != nil {
		return nil, err
	}
	m, err := models.Decode(codec.JSON(), c, data)
	if err != nil {
		return nil, err
	}
	if err := models.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func toFields(m models.Model) (map[string]any, error) {
	data, err := codec.JSON().Marshal(m)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := codec.JSON().Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeBody(r *http.Request, dst any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := codec.JSON().Unmarshal(data, dst); err != nil {
		return fmt.Errorf("JSON parse error - %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := codec.JSON().Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
