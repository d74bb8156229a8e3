package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multascan/internal/config"
	"multascan/internal/sources"
	"multascan/internal/sources/captcha"
	"multascan/internal/sources/session"
)

// stubResolver satisfies captcha.Resolver without an external provider
type stubResolver struct {
	solution  captcha.Solution
	err       error
	challenge captcha.Challenge
}

func (s *stubResolver) Resolve(ctx context.Context, challenge captcha.Challenge) (captcha.Solution, error) {
	s.challenge = challenge
	if s.err != nil {
		return captcha.Solution{}, s.err
	}
	return s.solution, nil
}

func (s *stubResolver) IsHealthy() bool { return s.err == nil }

const nacionalConsultaPage = `<html><body>
	<form action="/consulta">
		<div class="g-recaptcha" data-sitekey="test-site-key-123"></div>
	</form>
</body></html>`

func nacionalTestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.Nacional.BaseURL = baseURL
	return cfg
}

func TestNacionalSolvesChallengeAndParsesRecords(t *testing.T) {
	resolver := &stubResolver{solution: captcha.Solution{Token: "solved-token"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/consulta/infracciones", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nacionalConsultaPage))
	})
	mux.HandleFunc("/api/infracciones/consulta", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "AB123CD", payload["dominio"])
		assert.Equal(t, "solved-token", payload["g-recaptcha-response"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"estado":"ok","infracciones":[
			{"acta":"N-5501","fecha":"12/04/2025","descripcion":"Cruce de semaforo en rojo","lugar":"RN 9 km 44","importe":"68.400,00","estado":"Pendiente"}
		]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewNacionalAdapter(nacionalTestConfig(server.URL), session.Config{}, resolver)
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFound, result.Kind)
	require.Len(t, result.Records, 1)
	record := result.Records[0]
	assert.Equal(t, "N-5501", *record.Acta)
	require.NotNil(t, record.Importe)
	assert.InDelta(t, 68400.0, *record.Importe, 0.001)
	assert.Equal(t, "pendiente", string(record.Estado))
	assert.Equal(t, "Registro Nacional", record.Jurisdiccion)

	// The site key comes off the page, not config
	assert.Equal(t, "test-site-key-123", resolver.challenge.SiteKey)
	assert.Equal(t, captcha.V2, resolver.challenge.Version)
}

func TestNacionalSentinelWinsOverStrayMarkup(t *testing.T) {
	resolver := &stubResolver{solution: captcha.Solution{Token: "solved-token"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/consulta/infracciones", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nacionalConsultaPage))
	})
	mux.HandleFunc("/api/infracciones/consulta", func(w http.ResponseWriter, r *http.Request) {
		// Sentinel phrase alongside table markup that would otherwise parse
		w.Write([]byte(`<html><body>
			<p>El dominio NO REGISTRA INFRACCIONES.</p>
			<table><tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td><td>f</td></tr></table>
		</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewNacionalAdapter(nacionalTestConfig(server.URL), session.Config{}, resolver)
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	assert.Equal(t, sources.KindEmpty, result.Kind)
}

func TestNacionalErrorEstadoIsUpstreamValidation(t *testing.T) {
	resolver := &stubResolver{solution: captcha.Solution{Token: "solved-token"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/consulta/infracciones", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nacionalConsultaPage))
	})
	mux.HandleFunc("/api/infracciones/consulta", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"estado":"error","mensaje":"dominio inexistente"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewNacionalAdapter(nacionalTestConfig(server.URL), session.Config{}, resolver)
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeUpstreamValidation, result.Err.Code)
	assert.Equal(t, "dominio inexistente", result.Err.Reason)
}

func TestNacionalChallengeFailuresMapToTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code sources.FailureCode
	}{
		{"missing site key", captcha.ErrMissingSiteKey, sources.CodeDescriptorInvalid},
		{"provider timeout", captcha.ErrTimeout, sources.CodeProviderTimeout},
		{"auto solve disabled", captcha.ErrAutoSolveDisabled, sources.CodeProviderError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(nacionalConsultaPage))
			}))
			defer server.Close()

			adapter := NewNacionalAdapter(nacionalTestConfig(server.URL), session.Config{}, &stubResolver{err: tc.err})
			result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

			require.Equal(t, sources.KindFailed, result.Kind)
			assert.Equal(t, tc.code, result.Err.Code)
		})
	}
}

func TestNacionalUnrecognizedBodyIsAmbiguous(t *testing.T) {
	resolver := &stubResolver{solution: captcha.Solution{Token: "solved-token"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/consulta/infracciones", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nacionalConsultaPage))
	})
	mux.HandleFunc("/api/infracciones/consulta", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Pagina en mantenimiento</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewNacionalAdapter(nacionalTestConfig(server.URL), session.Config{}, resolver)
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeParseAmbiguous, result.Err.Code)
}
