package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/extract"
	"multascan/internal/sources/normalize"
	"multascan/internal/sources/session"
	"multascan/pkg/models"
)

const (
	santafeID           = "santafe"
	santafeJurisdiction = "Provincia de Santa Fe"

	santafeFormPath   = "/consulta/infracciones.do"
	santafeWritePath  = "/consulta/cargarDominio.do"
	santafeSubmitPath = "/consulta/listarInfracciones.do"

	santafeMinRowCells = 6
)

var santafeSentinels = []string{
	"no registra infracciones",
	"sin resultados para el dominio",
}

// SantaFeAdapter drives the provincial portal's two-phase flow. The search
// form has no writable plate field: the plate must first be written into
// server-side session state via a GET, and that state-writing response
// rotates the form tokens. The submit therefore carries the tokens extracted
// from the second response, never the ones from the original page load.
type SantaFeAdapter struct {
	cfg     *config.Config
	httpCfg session.Config
	logger  logging.Logger
}

// NewSantaFeAdapter creates the Santa Fe portal adapter
func NewSantaFeAdapter(cfg *config.Config, httpCfg session.Config) *SantaFeAdapter {
	return &SantaFeAdapter{
		cfg:     cfg,
		httpCfg: httpCfg,
		logger:  logging.GetGlobalLogger().WithField("source", santafeID),
	}
}

func (a *SantaFeAdapter) ID() string { return santafeID }

func (a *SantaFeAdapter) Jurisdiction() string { return santafeJurisdiction }

func (a *SantaFeAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	base := a.cfg.Sources.SantaFe.BaseURL

	sess, err := session.New(a.httpCfg)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeSessionError, "failed to create session", err))
	}

	page, err := sess.Get(ctx, base+santafeFormPath)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeSessionError, "form page unreachable", err))
	}
	if page.Status != 200 {
		return sources.Failed(sources.Fail(santafeID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("form page returned status %d", page.Status)))
	}

	// Phase one: write the plate into session state. The response re-renders
	// the form with fresh tokens; those are the only ones the submit accepts.
	writeURL := base + santafeWritePath + "?dominio=" + url.QueryEscape(query.Plate)
	stateResp, err := sess.Get(ctx, writeURL)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeUpstreamUnavailable, "state-writing request failed", err))
	}
	if stateResp.Status != 200 {
		return sources.Failed(sources.Fail(santafeID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("state-writing request returned status %d", stateResp.Status)))
	}

	stateDoc, err := extract.Document(stateResp.Body)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeParseAmbiguous, "unparsable state-writing response", err))
	}
	hidden := extract.HiddenInputs(stateDoc)
	if hidden["org.apache.struts.taglib.html.TOKEN"] == "" {
		return sources.Failed(sources.Fail(santafeID, sources.CodeTokenNotFound,
			"no transaction token in state-writing response"))
	}
	for name, value := range hidden {
		sess.SetToken(name, value)
	}

	// Phase two: submit using only the re-extracted tokens
	form := url.Values{}
	for name, value := range sess.Tokens {
		form.Set(name, value)
	}
	resp, err := sess.PostForm(ctx, base+santafeSubmitPath, form)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeUpstreamUnavailable, "submit failed", err))
	}
	if resp.Status != 200 {
		return sources.Failed(sources.Fail(santafeID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("submit returned status %d", resp.Status)))
	}

	return a.parse(resp.Body)
}

func (a *SantaFeAdapter) parse(body string) sources.Result {
	if extract.ContainsAny(body, santafeSentinels) {
		return sources.Empty()
	}

	doc, err := extract.Document(body)
	if err != nil {
		return sources.Failed(sources.FailWrap(santafeID, sources.CodeParseAmbiguous, "unparsable submit response", err))
	}

	jurisdiction := santafeJurisdiction
	if titular, ok := extract.Text(doc, "#titular, .datos-titular"); ok && titular != "" {
		// The portal volunteers the registered titleholder; carry it in the
		// jurisdiction label rather than widening the record schema
		jurisdiction = fmt.Sprintf("%s - Titular: %s", santafeJurisdiction, strings.TrimSpace(titular))
	}

	rows := extract.Rows(doc, "table.infracciones tr, #listadoInfracciones tr", santafeMinRowCells)
	if len(rows) == 0 {
		return sources.Failed(sources.Fail(santafeID, sources.CodeParseAmbiguous,
			"no sentinel and no result rows in submit response"))
	}

	records := make([]models.ViolationRecord, 0, len(rows))
	for _, cells := range rows {
		records = append(records, models.ViolationRecord{
			Acta:         normalize.Text(cells[0]),
			Fecha:        normalize.Text(cells[1]),
			Descripcion:  normalize.Text(cells[2]),
			Lugar:        normalize.Text(cells[3]),
			Importe:      normalize.Amount(cells[4]),
			Estado:       normalize.Status(cells[5]),
			Jurisdiccion: jurisdiction,
		})
	}
	return sources.Found(records)
}
