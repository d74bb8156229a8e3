package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/captcha"
	"multascan/internal/sources/extract"
	"multascan/internal/sources/normalize"
	"multascan/internal/sources/session"
	"multascan/pkg/models"
)

const (
	nacionalID           = "nacional"
	nacionalJurisdiction = "Registro Nacional"

	nacionalConsultaPath = "/consulta/infracciones"
	nacionalQueryPath    = "/api/infracciones/consulta"
)

// Phrases the national registry uses for a clean record. Scraped from live
// responses; an unrecognized phrasing classifies as a parse failure, not as
// empty, so the list is deliberately not guessed beyond what was observed.
var nacionalSentinels = []string{
	"no registra infracciones",
	"sin infracciones pendientes",
}

// NacionalAdapter queries the national infraction registry. The portal gates
// the query endpoint behind reCAPTCHA v2; the site key is extracted from the
// consulta page rather than hardcoded so a key rotation doesn't break us.
type NacionalAdapter struct {
	cfg      *config.Config
	httpCfg  session.Config
	resolver captcha.Resolver
	logger   logging.Logger
}

// NewNacionalAdapter creates the national registry adapter
func NewNacionalAdapter(cfg *config.Config, httpCfg session.Config, resolver captcha.Resolver) *NacionalAdapter {
	return &NacionalAdapter{
		cfg:      cfg,
		httpCfg:  httpCfg,
		resolver: resolver,
		logger:   logging.GetGlobalLogger().WithField("source", nacionalID),
	}
}

func (a *NacionalAdapter) ID() string { return nacionalID }

func (a *NacionalAdapter) Jurisdiction() string { return nacionalJurisdiction }

// Fetch runs session -> site key -> challenge -> JSON query -> classify
func (a *NacionalAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	base := a.cfg.Sources.Nacional.BaseURL
	pageURL := base + nacionalConsultaPath

	sess, err := session.New(a.httpCfg)
	if err != nil {
		return sources.Failed(sources.FailWrap(nacionalID, sources.CodeSessionError, "failed to create session", err))
	}

	page, err := sess.Get(ctx, pageURL)
	if err != nil {
		return sources.Failed(sources.FailWrap(nacionalID, sources.CodeSessionError, "consulta page unreachable", err))
	}
	if page.Status != 200 {
		return sources.Failed(sources.Fail(nacionalID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("consulta page returned status %d", page.Status)))
	}

	siteKey := extract.RecaptchaSiteKey(page.Body)
	solution, err := a.resolver.Resolve(ctx, captcha.Challenge{
		SiteKey: siteKey,
		PageURL: pageURL,
		Version: captcha.V2,
	})
	if err != nil {
		return sources.Failed(classifyChallengeError(nacionalID, err))
	}

	resp, err := sess.PostJSON(ctx, base+nacionalQueryPath, map[string]string{
		"dominio":              query.Plate,
		"g-recaptcha-response": solution.Token,
	})
	if err != nil {
		return sources.Failed(sources.FailWrap(nacionalID, sources.CodeUpstreamUnavailable, "query request failed", err))
	}
	if resp.Status >= 500 {
		return sources.Failed(sources.Fail(nacionalID, sources.CodeUpstreamUnavailable,
			fmt.Sprintf("query endpoint returned status %d", resp.Status)))
	}

	return a.classify(resp.Body)
}

func (a *NacionalAdapter) classify(body string) sources.Result {
	// The sentinel wins over anything else in the body, including stray
	// table markup on error pages
	if extract.ContainsAny(body, nacionalSentinels) {
		return sources.Empty()
	}

	var payload struct {
		Estado       string                   `json:"estado"`
		Mensaje      string                   `json:"mensaje"`
		Infracciones []map[string]interface{} `json:"infracciones"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return sources.Failed(sources.FailWrap(nacionalID, sources.CodeParseAmbiguous,
			"response is neither a sentinel page nor the expected JSON shape", err))
	}

	if payload.Mensaje != "" && extract.ContainsAny(payload.Mensaje, nacionalSentinels) {
		return sources.Empty()
	}
	if payload.Estado == "error" {
		return sources.Failed(sources.Fail(nacionalID, sources.CodeUpstreamValidation, payload.Mensaje))
	}

	records := make([]models.ViolationRecord, 0, len(payload.Infracciones))
	for _, item := range payload.Infracciones {
		records = append(records, a.record(item))
	}

	if len(records) == 0 {
		// Well-formed response, zero rows, no sentinel: the registry omits
		// the sentinel on some empty responses
		return sources.Empty()
	}
	return sources.Found(records)
}

func (a *NacionalAdapter) record(item map[string]interface{}) models.ViolationRecord {
	return models.ViolationRecord{
		Acta:         normalize.Text(firstString(item, "acta", "numeroActa", "nroActa")),
		Fecha:        normalize.Text(firstString(item, "fecha", "fechaInfraccion")),
		Descripcion:  normalize.Text(firstString(item, "descripcion", "infraccion", "detalle")),
		Lugar:        normalize.Text(firstString(item, "lugar", "ubicacion")),
		Importe:      amountField(item, "importe", "monto", "total"),
		Estado:       normalize.Status(firstString(item, "estado", "situacion")),
		Jurisdiccion: nacionalJurisdiction,
	}
}

// classifyChallengeError maps resolver failures onto the source taxonomy
func classifyChallengeError(sourceID string, err error) *sources.SourceError {
	switch {
	case errors.Is(err, captcha.ErrMissingSiteKey):
		return sources.FailWrap(sourceID, sources.CodeDescriptorInvalid, "no site key found on page", err)
	case errors.Is(err, captcha.ErrTimeout):
		return sources.FailWrap(sourceID, sources.CodeProviderTimeout, "challenge not solved within budget", err)
	default:
		return sources.FailWrap(sourceID, sources.CodeProviderError, "challenge resolution failed", err)
	}
}
