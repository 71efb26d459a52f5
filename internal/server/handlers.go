package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/editor"
	"github.com/cyrogem/nodedialogue/pkg/errors"
	"github.com/cyrogem/nodedialogue/pkg/pipeline"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  s.Store.Backend().Kind(),
	})
}

func (s *Server) listDialogues(w http.ResponseWriter, r *http.Request) {
	names, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dialogues": names})
}

// createDialogue saves the body without overwriting. The name comes from
// ?name=, then the body's own name, then the graph.
func (s *Server) createDialogue(w http.ResponseWriter, r *http.Request) {
	g, bodyName, err := s.decodeBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	custom := r.URL.Query().Get("name")
	if custom == "" {
		custom = bodyName
	}
	name := asset.DialogueName(g, custom)
	saved, err := s.Store.Save(r.Context(), name, g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/dialogues/"+url.PathEscape(saved))
	writeJSON(w, http.StatusCreated, map[string]string{"name": saved})
}

func (s *Server) getDialogue(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := asset.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		if format, err = asset.ParseFormat(q); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	a, err := s.Store.LoadAsset(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := asset.ToGraph(a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := asset.Marshal(g, format, asset.Options{Name: a.DialogueName})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) putDialogue(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, _, err := s.decodeBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.Put(r.Context(), name, g); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteDialogue(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.Delete(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyCommands runs a command batch against the stored dialogue. The batch
// is all or nothing: the dialogue is only written back when every command
// succeeds.
func (s *Server) applyCommands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req commandsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode commands"))
		return
	}
	if err := validateStruct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.Store.Load(ctx, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ed := editor.New(s.Store, s.Logger)
	ed.Open(g, name)
	results, err := ed.ApplyAll(ctx, req.Commands)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.Put(ctx, name, ed.Graph()); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := commandsResponse{Name: name, Results: results}
	for _, res := range results {
		if res.Node == "" {
			continue
		}
		if i := ed.Graph().IndexOf(res.Node); i >= 0 {
			if resp.Created == nil {
				resp.Created = make(map[string]string)
			}
			resp.Created[string(res.Node)] = string(asset.IndexID(i))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) renderDialogue(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := renderOptions(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.Store.Load(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.Runner.Render(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := opts.Formats[0]
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("ETag", strconv.Quote(result.GraphHash))
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// =============================================================================
// Helpers
// =============================================================================

func renderOptions(q url.Values) (pipeline.Options, error) {
	opts := pipeline.Options{
		Formats: []string{pipeline.FormatSVG},
		Rankdir: q.Get("rankdir"),
	}
	if f := q.Get("format"); f != "" {
		opts.Formats = []string{f}
	}
	if p := q.Get("pinned"); p != "" {
		v, err := strconv.ParseBool(p)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "pinned must be a boolean, got %q", p)
		}
		opts.Pinned = v
	}
	if sc := q.Get("scale"); sc != "" {
		v, err := strconv.ParseFloat(sc, 64)
		if err != nil || v <= 0 || v > 10 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "scale must be a number in (0, 10], got %q", sc)
		}
		opts.Scale = v
	}
	return opts, opts.ValidateAndSetDefaults()
}

// nameParam returns the {name} path segment, unescaped and validated.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidName, err, "bad dialogue name %q", name)
		}
		name = unescaped
	}
	if err := errors.ValidateDialogueName(name); err != nil {
		return "", err
	}
	return name, nil
}

// decodeBody reads a graph in the format named by ?format=, or by the
// Content-Type, defaulting to JSON.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (*dialogue.Graph, string, error) {
	format, err := bodyFormat(r)
	if err != nil {
		return nil, "", err
	}
	g, name, err := asset.Decode(http.MaxBytesReader(w, r.Body, MaxBodyBytes), format)
	if err != nil {
		return nil, "", err
	}
	return g, name, nil
}

func bodyFormat(r *http.Request) (asset.Format, error) {
	if q := r.URL.Query().Get("format"); q != "" {
		return asset.ParseFormat(q)
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(mt, "yaml"):
		return asset.FormatYAML, nil
	default:
		return asset.FormatJSON, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
