package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/extract"
	"multascan/internal/sources/normalize"
	"multascan/internal/sources/session"
	"multascan/pkg/models"
	"multascan/pkg/utils"
)

const (
	cordobaID           = "cordoba"
	cordobaJurisdiction = "Municipalidad de Cordoba"

	cordobaQueryPath = "/consulta/multas"

	cordobaMinRowCells = 6
)

var cordobaSentinels = []string{
	"no posee multas",
	"sin multas registradas",
}

// The portal sometimes renders its results as a JSON blob assigned to an
// inline script variable instead of a table
var cordobaEmbeddedJSON = regexp.MustCompile(`var\s+multas\s*=\s*(\[.*?\])\s*;`)

// CordobaAdapter queries the municipal portal. The backend predates the
// current plate layout and answers garbage for 7-character plates, so those
// are rejected up front without touching the network.
type CordobaAdapter struct {
	cfg     *config.Config
	httpCfg session.Config
	logger  logging.Logger
}

// NewCordobaAdapter creates the municipal portal adapter
func NewCordobaAdapter(cfg *config.Config, httpCfg session.Config) *CordobaAdapter {
	return &CordobaAdapter{
		cfg:     cfg,
		httpCfg: httpCfg,
		logger:  logging.GetGlobalLogger().WithField("source", cordobaID),
	}
}

func (a *CordobaAdapter) ID() string { return cordobaID }

func (a *CordobaAdapter) Jurisdiction() string { return cordobaJurisdiction }

func (a *CordobaAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	// Format precondition comes before any network activity
	if !utils.IsLegacyPlate(query.Plate) {
		return sources.Failed(sources.Fail(cordobaID, sources.CodeUnsupportedFormat,
			"this source only supports the legacy 6-character plate layout (AAA999)"))
	}

	sess, err := session.New(a.httpCfg)
	if err != nil {
		return sources.Failed(sources.FailWrap(cordobaID, sources.CodeSessionError, "failed to create session", err))
	}

	queryURL := a.cfg.Sources.Cordoba.BaseURL + cordobaQueryPath + "?dominio=" + url.QueryEscape(query.Plate)
	resp, err := sess.Get(ctx, queryURL)
	if err != nil {
		return sources.Failed(sources.FailWrap(cordobaID, sources.CodeUpstreamUnavailable, "query request failed", err))
	}
	if resp.Status != 200 {
		return sources.Failed(sources.Fail(cordobaID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("query returned status %d", resp.Status)))
	}

	return a.parse(resp.Body)
}

func (a *CordobaAdapter) parse(body string) sources.Result {
	if extract.ContainsAny(body, cordobaSentinels) {
		return sources.Empty()
	}

	// Embedded JSON shape first; the table shape is the fallback
	if matches := cordobaEmbeddedJSON.FindStringSubmatch(body); len(matches) > 1 {
		return a.parseEmbedded(matches[1])
	}

	doc, err := extract.Document(body)
	if err != nil {
		return sources.Failed(sources.FailWrap(cordobaID, sources.CodeParseAmbiguous, "unparsable query response", err))
	}

	rows := extract.Rows(doc, "table.multas tr, #tablaMultas tr", cordobaMinRowCells)
	if len(rows) == 0 {
		return sources.Failed(sources.Fail(cordobaID, sources.CodeParseAmbiguous,
			"no sentinel, no embedded payload and no result rows in query response"))
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
			Jurisdiccion: cordobaJurisdiction,
		})
	}
	return sources.Found(records)
}

func (a *CordobaAdapter) parseEmbedded(raw string) sources.Result {
	var items []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return sources.Failed(sources.FailWrap(cordobaID, sources.CodeParseAmbiguous,
			"embedded payload is not valid JSON", err))
	}

	if len(items) == 0 {
		return sources.Empty()
	}

	records := make([]models.ViolationRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.ViolationRecord{
			Acta:         normalize.Text(firstString(item, "acta", "nroActa")),
			Fecha:        normalize.Text(firstString(item, "fecha")),
			Descripcion:  normalize.Text(firstString(item, "descripcion", "motivo")),
			Lugar:        normalize.Text(firstString(item, "lugar", "direccion")),
			Importe:      amountField(item, "importe", "monto"),
			Estado:       normalize.Status(firstString(item, "estado")),
			Jurisdiccion: cordobaJurisdiction,
		})
	}
	return sources.Found(records)
}
