package adapters

import (
	"context"
	"fmt"
	"net/url"

	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/extract"
	"multascan/internal/sources/normalize"
	"multascan/internal/sources/session"
	"multascan/pkg/models"
)

const (
	provinciaID           = "provincia"
	provinciaJurisdiction = "Provincia de Buenos Aires"

	provinciaFormPath = "/consultaDeuda.aspx"

	provinciaMinRowCells = 6
)

var provinciaSentinels = []string{
	"no registra deuda",
	"no se encontraron registros",
}

// The postback machinery breaks without these; their absence means the page
// layout changed and re-extraction is pointless
var provinciaRequiredTokens = []string{"__VIEWSTATE", "__EVENTVALIDATION"}

// ProvinciaAdapter drives the province's WebForms page. The form only
// accepts a POST whose hidden state tokens match the ones the server just
// rendered, so every lookup re-extracts the full hidden-field set instead of
// caching it.
type ProvinciaAdapter struct {
	cfg     *config.Config
	httpCfg session.Config
	logger  logging.Logger
}

// NewProvinciaAdapter creates the province portal adapter
func NewProvinciaAdapter(cfg *config.Config, httpCfg session.Config) *ProvinciaAdapter {
	return &ProvinciaAdapter{
		cfg:     cfg,
		httpCfg: httpCfg,
		logger:  logging.GetGlobalLogger().WithField("source", provinciaID),
	}
}

func (a *ProvinciaAdapter) ID() string { return provinciaID }

func (a *ProvinciaAdapter) Jurisdiction() string { return provinciaJurisdiction }

func (a *ProvinciaAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	formURL := a.cfg.Sources.Provincia.BaseURL + provinciaFormPath

	sess, err := session.New(a.httpCfg)
	if err != nil {
		return sources.Failed(sources.FailWrap(provinciaID, sources.CodeSessionError, "failed to create session", err))
	}

	page, err := sess.Get(ctx, formURL)
	if err != nil {
		return sources.Failed(sources.FailWrap(provinciaID, sources.CodeSessionError, "form page unreachable", err))
	}
	if page.Status != 200 {
		return sources.Failed(sources.Fail(provinciaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("form page returned status %d", page.Status)))
	}

	doc, err := extract.Document(page.Body)
	if err != nil {
		return sources.Failed(sources.FailWrap(provinciaID, sources.CodeParseAmbiguous, "unparsable form page", err))
	}

	hidden := extract.HiddenInputs(doc)
	for _, name := range provinciaRequiredTokens {
		if hidden[name] == "" {
			return sources.Failed(sources.Fail(provinciaID, sources.CodeTokenNotFound,
				fmt.Sprintf("hidden field %s missing from form page", name)))
		}
	}
	for name, value := range hidden {
		sess.SetToken(name, value)
	}

	form := url.Values{}
	for name, value := range hidden {
		form.Set(name, value)
	}
	form.Set("__EVENTTARGET", "btnConsultar")
	form.Set("__EVENTARGUMENT", "")
	form.Set("txtDominio", query.Plate)

	resp, err := sess.PostForm(ctx, formURL, form)
	if err != nil {
		return sources.Failed(sources.FailWrap(provinciaID, sources.CodeUpstreamUnavailable, "postback failed", err))
	}
	if resp.Status != 200 {
		return sources.Failed(sources.Fail(provinciaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("postback returned status %d", resp.Status)))
	}

	return a.parse(resp.Body)
}

func (a *ProvinciaAdapter) parse(body string) sources.Result {
	if extract.ContainsAny(body, provinciaSentinels) {
		return sources.Empty()
	}

	doc, err := extract.Document(body)
	if err != nil {
		return sources.Failed(sources.FailWrap(provinciaID, sources.CodeParseAmbiguous, "unparsable postback response", err))
	}

	// Container absent vs. container present but rowless are different
	// signals: the first means the layout changed, the second a quiet empty
	// result the portal sometimes renders without its sentinel
	if doc.Find("#gvDeuda, table.grilla-deuda").Length() == 0 {
		return sources.Failed(sources.Fail(provinciaID, sources.CodeParseAmbiguous,
			"no sentinel and no result container in postback response"))
	}

	rows := extract.Rows(doc, "#gvDeuda tr, table.grilla-deuda tr", provinciaMinRowCells)
	if len(rows) == 0 {
		return sources.Empty()
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
			Jurisdiccion: provinciaJurisdiction,
		})
	}
	return sources.Found(records)
}
