package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"gearadvisor-backend/internal/advisor"
	"gearadvisor-backend/internal/middleware"
	"gearadvisor-backend/internal/render"
	"gearadvisor-backend/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageTurn struct {
	Index int
	Role  string
	HTML  template.HTML
}

type pageData struct {
	Title       string
	Placeholder string
	Turns       []pageTurn
	Diagnostic  string
	Busy        bool
}

// PageHandler serves the chat page and its plain form fallback.
type PageHandler struct {
	bridge   conversationBridge
	markdown *render.Markdown
	logger   *zap.Logger
}

func NewPageHandler(bridge conversationBridge, markdown *render.Markdown, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		bridge:   bridge,
		markdown: markdown,
		logger:   logger,
	}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, session, "")
}

// Submit handles the form post used when scripting is unavailable. The
// diagnostic of a failed call is rendered once and not kept anywhere.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		// Ended or missing session: start over from the page.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	exchange, err := submit(r, h.bridge, session, r.PostForm.Get("message"))
	if err != nil {
		// Empty input and double submits just show the page again.
		h.render(w, r, http.StatusOK, session, "")
		return
	}
	h.render(w, r, http.StatusOK, session, exchange.Diagnostic)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, session *advisor.Session, diagnostic string) {
	turns := session.Turns()
	data := pageData{
		Title:       advisor.Title,
		Placeholder: advisor.InputPlaceholder,
		Turns:       make([]pageTurn, 0, len(turns)),
		Diagnostic:  diagnostic,
		Busy:        session.InFlight(),
	}
	for i, turn := range turns {
		data.Turns = append(data.Turns, pageTurn{
			Index: i,
			Role:  string(turn.Role),
			// RenderTurn escapes user input and sanitizes Markdown output.
			HTML: template.HTML(services.RenderTurn(h.markdown, turn)),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
