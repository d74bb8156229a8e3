package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/codec"
	"multascan/internal/sources/extract"
	"multascan/internal/sources/normalize"
	"multascan/internal/sources/session"
	"multascan/pkg/models"
)

const (
	cabaID           = "caba"
	cabaJurisdiction = "Ciudad Autonoma de Buenos Aires"

	cabaPortalPath = "/consultainfracciones/"
	cabaEventPath  = "/consultainfracciones/evento"

	// consultarDominio rows carry acta, fecha, descripcion, lugar, importe,
	// estado in that order; shorter rows are decoration
	cabaMinRowCells = 6
)

var cabaSentinels = []string{
	"no se encontraron infracciones",
	"no posee infracciones",
}

// The portal prints the RPC session into an inline script on the landing page
var cabaSessionPattern = regexp.MustCompile(`idSesion\s*[=:]\s*['"]([^'"]+)['"]`)

// CabaAdapter drives the city portal's event RPC. Each event call names its
// action through a control string encrypted with a fixed AES-128-ECB key in
// the "p" query parameter, with the arguments in a JSON body. The server
// rejects events whose session has not first been put into consulta mode, so
// the mode-switch event always precedes the query event even though its
// response body is discarded.
type CabaAdapter struct {
	cfg     *config.Config
	httpCfg session.Config
	logger  logging.Logger
}

// NewCabaAdapter creates the city portal adapter
func NewCabaAdapter(cfg *config.Config, httpCfg session.Config) *CabaAdapter {
	return &CabaAdapter{
		cfg:     cfg,
		httpCfg: httpCfg,
		logger:  logging.GetGlobalLogger().WithField("source", cabaID),
	}
}

func (a *CabaAdapter) ID() string { return cabaID }

func (a *CabaAdapter) Jurisdiction() string { return cabaJurisdiction }

func (a *CabaAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	base := a.cfg.Sources.Caba.BaseURL

	sess, err := session.New(a.httpCfg)
	if err != nil {
		return sources.Failed(sources.FailWrap(cabaID, sources.CodeSessionError, "failed to create session", err))
	}

	page, err := sess.Get(ctx, base+cabaPortalPath)
	if err != nil {
		return sources.Failed(sources.FailWrap(cabaID, sources.CodeSessionError, "portal unreachable", err))
	}
	if page.Status != 200 {
		return sources.Failed(sources.Fail(cabaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("portal returned status %d", page.Status)))
	}

	matches := cabaSessionPattern.FindStringSubmatch(page.Body)
	if len(matches) < 2 || matches[1] == "" {
		return sources.Failed(sources.Fail(cabaID, sources.CodeSessionError, "no idSesion in portal page"))
	}
	sess.ID = matches[1]

	// Mode switch first. Its body carries nothing useful but skipping it
	// makes the query event fail server-side.
	if _, err := a.fireEvent(ctx, sess, "activarModoConsulta", nil); err != nil {
		return sources.Failed(err)
	}

	resp, srcErr := a.fireEvent(ctx, sess, "consultarDominio", map[string]string{
		"dominio": query.Plate,
	})
	if srcErr != nil {
		return sources.Failed(srcErr)
	}

	return a.parse(resp.Body)
}

// fireEvent encrypts the event control string and issues the RPC call. The
// arguments travel in the JSON body; the encrypted parameter only names the
// action, so it never carries anything secret.
func (a *CabaAdapter) fireEvent(ctx context.Context, sess *session.Session, event string, args map[string]string) (*session.Response, *sources.SourceError) {
	control := fmt.Sprintf("%s;%s", sess.ID, event)
	encrypted, err := codec.EncryptECB(control, []byte(a.cfg.Sources.Caba.CipherKey))
	if err != nil {
		return nil, sources.FailWrap(cabaID, sources.CodeSessionError, "failed to encrypt event parameter", err)
	}

	if args == nil {
		args = map[string]string{}
	}
	eventURL := a.cfg.Sources.Caba.BaseURL + cabaEventPath + "?p=" + url.QueryEscape(encrypted)
	resp, err := sess.PostJSON(ctx, eventURL, args)
	if err != nil {
		return nil, sources.FailWrap(cabaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("event %s failed", event), err)
	}
	if resp.Status != 200 {
		return nil, sources.Fail(cabaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("event %s returned status %d", event, resp.Status))
	}
	return resp, nil
}

func (a *CabaAdapter) parse(body string) sources.Result {
	if extract.ContainsAny(body, cabaSentinels) {
		return sources.Empty()
	}

	doc, err := extract.Document(body)
	if err != nil {
		return sources.Failed(sources.FailWrap(cabaID, sources.CodeParseAmbiguous, "unparsable event response", err))
	}

	rows := extract.Rows(doc, "table.resultado tr, table#infracciones tr", cabaMinRowCells)
	if len(rows) == 0 {
		return sources.Failed(sources.Fail(cabaID, sources.CodeParseAmbiguous,
			"no sentinel and no result rows in event response"))
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
			Jurisdiccion: cabaJurisdiction,
		})
	}
	return sources.Found(records)
}
