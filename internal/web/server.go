// Package web serves the campaign site: the roadmap landing page, the
// contribution form and a small JSON API. The same handler runs behind a
// local HTTP server and behind API Gateway in Lambda.
//
// Routes:
//
//	GET  /             landing page (roadmap + counter)
//	GET  /contribuir   contribution form
//	POST /contribuir   submit the form (multipart)
//	GET  /api/count    {"count": n}
//	GET  /api/health   health check
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/flow"
	"github.com/smartdog/pet-contribution/internal/pet"
	"github.com/smartdog/pet-contribution/internal/photo"
	"github.com/smartdog/pet-contribution/internal/roadmap"
	"github.com/smartdog/pet-contribution/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultMaxUploadBytes bounds a form submission.
const DefaultMaxUploadBytes int64 = 32 << 20

// Contribution is passed to the success hook after an accepted submission.
type Contribution struct {
	Variant string
	Details pet.Details
	Photos  []photo.Selected
	Result  *flow.Success
}

// SubmissionObserver is notified of every submission attempt that reached
// validation. metrics.Emitter satisfies it.
type SubmissionObserver interface {
	Submission(variant string, err error, d time.Duration, photos int)
}

// Options configures a Server.
type Options struct {
	Submitter flow.Submitter
	Notifier  flow.Notifier
	Counter   counter.Counter
	Sink      flow.Sink
	Theme     roadmap.Theme
	Variant   flow.Variant

	// OnSuccess runs after an accepted contribution, before the response
	// is written. Errors are logged and never shown to the user.
	OnSuccess func(ctx context.Context, c Contribution) error
	// Observer receives one call per submission attempt.
	Observer SubmissionObserver
	// RequestMetrics emits an EMF document per request.
	RequestMetrics bool
	// WaitBackground makes the handler wait for background work (the
	// counter notification) before responding. Set it in Lambda, where the
	// process is frozen between invocations.
	WaitBackground bool
	// MaxUploadBytes bounds a form submission; zero uses the default.
	MaxUploadBytes int64
	// Drafts keeps accepted photos between a failed attempt and its retry.
	// Nil uses an in-process store.
	Drafts Drafts
}

// Server renders the site.
type Server struct {
	opts  Options
	pages *template.Template
}

// New parses the embedded templates and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Submitter == nil {
		return nil, fmt.Errorf("web: submitter is required")
	}
	if opts.Counter == nil {
		return nil, fmt.Errorf("web: counter is required")
	}
	if opts.Theme.Name == "" {
		opts.Theme = roadmap.LookupTheme(roadmap.DefaultTheme)
	}
	if opts.Variant.Name == "" {
		opts.Variant = flow.Contribute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Drafts == nil {
		opts.Drafts = NewMemoryDrafts(DefaultDraftTTL)
	}

	pages, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{opts: opts, pages: pages}, nil
}

var funcs = template.FuncMap{
	"safeImage":     safeImage,
	"tagline":       func() string { return roadmap.Tagline },
	"headline":      func() string { return roadmap.Headline },
	"lead":          func() string { return roadmap.Lead },
	"counterLabel":  func() string { return roadmap.CounterLabel },
	"ctaTitle":      func() string { return roadmap.CTATitle },
	"ctaBody":       func() string { return roadmap.CTABody },
	"ctaButton":     func() string { return roadmap.CTAButton },
	"footerPurpose": func() string { return roadmap.FooterPurpose },
	"footerCopy":    func() string { return roadmap.FooterCopy },
}

// safeImage allows http(s) URLs and data URLs of images as <img> sources.
// Anything else renders as an empty source.
func safeImage(u string) template.URL {
	switch {
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "data:image/"):
		return template.URL(u)
	}
	return ""
}

// Handler returns the routed handler wrapped with middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /contribuir", s.handleForm)
	mux.HandleFunc("POST /contribuir", s.handleSubmit)
	mux.HandleFunc("GET /api/count", s.handleCount)
	mux.HandleFunc("GET /api/health", handleHealth)

	var h http.Handler = mux
	if s.opts.RequestMetrics {
		h = withMetrics(h)
	}
	return withLogging(withSecurityHeaders(h))
}

// --- Page data ---

type slotData struct {
	Label    string
	Filename string
	Preview  string
}

type pageData struct {
	Title      string
	Theme      roadmap.Theme
	Count      string
	Phases     []roadmap.Phase
	Variant    flow.Variant
	Details    pet.Details
	Terms      bool
	Error      string
	ErrorField string
	Breeds     []string
	CoatColors []string
	Success    *flow.Success
	HumanAge   string
	Slots      []slotData
	// Draft and Kept carry photos accepted by an earlier attempt.
	Draft string
	Kept  map[string]*slotData
}

func (s *Server) page(ctx context.Context, title string) pageData {
	return s.pageWithCount(title, s.opts.Counter.Read(ctx))
}

func (s *Server) pageWithCount(title string, count int) pageData {
	return pageData{
		Title:   title,
		Theme:   s.opts.Theme,
		Count:   roadmap.FormatCount(count),
		Variant: s.opts.Variant,
	}
}

func (s *Server) formPage(ctx context.Context) pageData {
	p := s.page(ctx, "Contribuir")
	p.Breeds = allBreeds()
	p.CoatColors = pet.CoatColors
	return p
}

// allBreeds merges both species' breed lists for the form's datalist,
// sorted, with the mixed-breed option first.
func allBreeds() []string {
	seen := map[string]bool{pet.MixedBreed: true}
	var out []string
	for _, sp := range []pet.Species{pet.SpeciesDog, pet.SpeciesCat} {
		for _, b := range pet.BreedOptions(sp) {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	sort.Strings(out)
	return append([]string{pet.MixedBreed}, out...)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Template render failed")
		httpError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// --- Handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p := s.page(r.Context(), "Roadmap")
	p.Phases = roadmap.Phases()
	s.render(w, http.StatusOK, "index.html", p)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "form.html", s.formPage(r.Context()))
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"count": s.opts.Counter.Read(r.Context())})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "smartdog"})
}

// formFields maps form input names to pet detail fields, in the order they
// are applied. Species precedes breed so that the breed survives.
var formFields = []string{pet.FieldName, pet.FieldSpecies, pet.FieldBreed, pet.FieldSex, pet.FieldAge, pet.FieldCoatColor}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		log.Warn().Err(err).Msg("Rejected contribution form")
		p := s.formPage(ctx)
		p.Error = "Não foi possível ler o formulário. Verifique o tamanho das fotos e tente novamente."
		s.render(w, http.StatusBadRequest, "form.html", p)
		return
	}

	ctrl := flow.New(s.opts.Variant, flow.Deps{
		Submitter: s.opts.Submitter,
		Notifier:  s.opts.Notifier,
		Counter:   s.opts.Counter,
		Sink:      s.opts.Sink,
	})
	if s.opts.WaitBackground {
		defer ctrl.Wait()
	}

	token := r.FormValue("draft")
	if !ValidDraftToken(token) {
		token = ""
	}
	kept := s.loadDraft(ctx, token)

	for _, spec := range s.opts.Variant.Slots {
		if p, err := formPhoto(r, spec.ID); err != nil {
			log.Debug().Err(err).Str("slot", spec.ID).Msg("No photo for slot")
		} else if !ctrl.SelectPhoto(spec.ID, p) {
			log.Info().Str("slot", spec.ID).Str("contentType", p.ContentType).Msg("Ignored non-image upload")
		}
		if p, ok := kept[spec.ID]; ok && ctrl.Intake().Photo(spec.ID) == nil {
			ctrl.SelectPhoto(spec.ID, p)
		}
	}

	for _, name := range formFields {
		if err := ctrl.SetField(name, r.FormValue(name)); err != nil {
			s.renderFormError(ctx, w, ctrl, token, http.StatusUnprocessableEntity,
				"Valor inválido no formulário. Revise os campos e tente novamente.", name)
			return
		}
	}
	ctrl.SetTermsAccepted(r.FormValue("terms") != "")

	start := time.Now()
	var res flow.Result
	err := ctrl.Advance()
	if err == nil {
		res, err = ctrl.Submit(ctx)
	}
	photos := len(ctrl.Intake().Selected())

	if err != nil {
		s.observe(err, time.Since(start), photos)
		message, field := ctrl.Error(), ""
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			field = verr.Field
		}
		if message == "" {
			message = err.Error()
		}
		s.renderFormError(ctx, w, ctrl, token, http.StatusUnprocessableEntity, message, field)
		return
	}

	switch res := res.(type) {
	case *flow.Failure:
		s.observe(res.Err, time.Since(start), photos)
		s.renderFormError(ctx, w, ctrl, token, http.StatusBadGateway, res.Message, "")
	case *flow.Success:
		s.observe(nil, time.Since(start), photos)
		s.afterSuccess(ctx, ctrl, res)
		s.dropDraft(ctx, token)

		ctrl.Intake().Wait()
		// The count comes from the submission: a fresh remote read would
		// predate the background increment and overwrite the cached value.
		p := s.pageWithCount("Obrigado", res.Count)
		p.Success = res
		if res.HumanAge != nil {
			p.HumanAge = strconv.FormatFloat(*res.HumanAge, 'f', -1, 64)
		}
		for _, sv := range ctrl.Intake().Slots() {
			if sv.Filled {
				p.Slots = append(p.Slots, slotData{Label: sv.Label, Filename: sv.Filename, Preview: sv.Preview})
			}
		}
		s.render(w, http.StatusOK, "result.html", p)
	}
}

// renderFormError re-renders the form with the entered details. Photos the
// attempt accepted are kept in a draft so the retry need not upload them.
func (s *Server) renderFormError(ctx context.Context, w http.ResponseWriter, ctrl *flow.Controller, token string, status int, message, field string) {
	view := ctrl.Snapshot()
	p := s.formPage(ctx)
	p.Details = view.Details
	p.Terms = view.TermsAccepted
	p.Error = message
	p.ErrorField = field

	p.Draft = s.keepDraft(ctx, token, ctrl.Intake().Selected())
	if p.Draft != "" {
		ctrl.Intake().Wait()
		p.Kept = make(map[string]*slotData)
		for _, sv := range ctrl.Intake().Slots() {
			if sv.Filled {
				p.Kept[sv.ID] = &slotData{Label: sv.Label, Filename: sv.Filename, Preview: sv.Preview}
			}
		}
	}
	s.render(w, status, "form.html", p)
}

func (s *Server) loadDraft(ctx context.Context, token string) map[string]*photo.Photo {
	if token == "" {
		return nil
	}
	photos, err := s.opts.Drafts.Load(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("draft", token).Msg("Failed to load draft photos")
		return nil
	}
	kept := make(map[string]*photo.Photo, len(photos))
	for _, sel := range photos {
		kept[sel.SlotID] = sel.Photo
	}
	return kept
}

// keepDraft stores photos under token, or a new token when it is empty, and
// returns the token the form should carry. It returns "" when nothing was
// kept.
func (s *Server) keepDraft(ctx context.Context, token string, photos []photo.Selected) string {
	if len(photos) == 0 {
		s.dropDraft(ctx, token)
		return ""
	}
	if token == "" {
		token = NewDraftToken()
	}
	if err := s.opts.Drafts.Save(ctx, token, photos); err != nil {
		log.Warn().Err(err).Str("draft", token).Msg("Failed to keep draft photos")
		return ""
	}
	log.Debug().Str("draft", token).Int("photos", len(photos)).Msg("Draft photos kept for retry")
	return token
}

func (s *Server) dropDraft(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.opts.Drafts.Delete(ctx, token); err != nil {
		log.Warn().Err(err).Str("draft", token).Msg("Failed to delete draft photos")
	}
}

func (s *Server) observe(err error, d time.Duration, photos int) {
	if s.opts.Observer != nil {
		s.opts.Observer.Submission(s.opts.Variant.Name, err, d, photos)
	}
}

func (s *Server) afterSuccess(ctx context.Context, ctrl *flow.Controller, res *flow.Success) {
	if s.opts.OnSuccess == nil {
		return
	}
	c := Contribution{
		Variant: s.opts.Variant.Name,
		Details: ctrl.Snapshot().Details,
		Photos:  ctrl.Intake().Selected(),
		Result:  res,
	}
	if err := s.opts.OnSuccess(ctx, c); err != nil {
		log.Warn().Err(err).Str("sessionId", res.Session).Msg("Success hook failed")
	}
}

// formPhoto reads the uploaded file for a slot. The declared media type
// comes from the part header, falling back to the filename extension.
func formPhoto(r *http.Request, field string) (*photo.Photo, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPart(f, hdr)
}

func readPart(f multipart.File, hdr *multipart.FileHeader) (*photo.Photo, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", hdr.Filename, err)
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = photo.DeclaredType(hdr.Filename)
	}
	return &photo.Photo{Filename: hdr.Filename, ContentType: contentType, Data: data}, nil
}

// Receipt returns the history record for c.
func (c Contribution) Receipt(at time.Time) *store.Receipt {
	return c.Result.Receipt(c.Variant, c.Details, at)
}
