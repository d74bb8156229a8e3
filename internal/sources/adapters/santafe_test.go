package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multascan/internal/config"
	"multascan/internal/sources"
	"multascan/internal/sources/session"
)

func santafeTestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.SantaFe.BaseURL = baseURL
	return cfg
}

func TestSantaFeSubmitsTokensFromStateResponse(t *testing.T) {
	var order []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		switch r.URL.Path {
		case "/consulta/infracciones.do":
			// Initial page carries a token that becomes stale after phase one
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="org.apache.struts.taglib.html.TOKEN" value="stale-token" />
			</form></body></html>`))
		case "/consulta/cargarDominio.do":
			assert.Equal(t, "AB123CD", r.URL.Query().Get("dominio"))
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="org.apache.struts.taglib.html.TOKEN" value="fresh-token" />
				<input type="hidden" name="metodo" value="listar" />
			</form></body></html>`))
		case "/consulta/listarInfracciones.do":
			require.NoError(t, r.ParseForm())
			// Only the re-extracted tokens are valid for the submit
			assert.Equal(t, "fresh-token", r.PostForm.Get("org.apache.struts.taglib.html.TOKEN"))
			assert.Equal(t, "listar", r.PostForm.Get("metodo"))

			w.Write([]byte(`<html><body>
				<div id="titular">PEREZ JUAN</div>
				<table class="infracciones">
					<tr><th>Acta</th><th>Fecha</th><th>Infraccion</th><th>Lugar</th><th>Importe</th><th>Estado</th></tr>
					<tr><td>SF-31</td><td>22/05/2025</td><td>Exceso de velocidad</td><td>RP 1 km 5</td><td>25.000,00</td><td>Pendiente</td></tr>
				</table>
			</body></html>`))
		}
	}))
	defer server.Close()

	adapter := NewSantaFeAdapter(santafeTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFound, result.Kind)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "SF-31", *result.Records[0].Acta)
	assert.Equal(t, "Provincia de Santa Fe - Titular: PEREZ JUAN", result.Records[0].Jurisdiccion)

	// The state write must happen between page load and submit
	assert.Equal(t, []string{
		"/consulta/infracciones.do",
		"/consulta/cargarDominio.do",
		"/consulta/listarInfracciones.do",
	}, order)
}

func TestSantaFeMissingTransactionTokenIsTokenNotFound(t *testing.T) {
	var submits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consulta/infracciones.do":
			w.Write([]byte(`<html><body><form></form></body></html>`))
		case "/consulta/cargarDominio.do":
			// State-writing response with no struts token
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="metodo" value="listar" />
			</form></body></html>`))
		case "/consulta/listarInfracciones.do":
			submits++
		}
	}))
	defer server.Close()

	adapter := NewSantaFeAdapter(santafeTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeTokenNotFound, result.Err.Code)
	assert.Equal(t, 0, submits, "must not submit without the transaction token")
}

func TestSantaFeSentinelMeansEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consulta/listarInfracciones.do":
			w.Write([]byte(`<html><body><p>El dominio consultado no registra infracciones.</p></body></html>`))
		default:
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="org.apache.struts.taglib.html.TOKEN" value="tok" />
			</form></body></html>`))
		}
	}))
	defer server.Close()

	adapter := NewSantaFeAdapter(santafeTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	assert.Equal(t, sources.KindEmpty, result.Kind)
}

func TestSantaFeNoSentinelNoRowsIsAmbiguous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consulta/listarInfracciones.do":
			w.Write([]byte(`<html><body><h1>Error interno</h1></body></html>`))
		default:
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="org.apache.struts.taglib.html.TOKEN" value="tok" />
			</form></body></html>`))
		}
	}))
	defer server.Close()

	adapter := NewSantaFeAdapter(santafeTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeParseAmbiguous, result.Err.Code)
}

func TestSantaFeWithoutTitleholderKeepsPlainJurisdiction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consulta/listarInfracciones.do":
			w.Write([]byte(`<html><body><table class="infracciones">
				<tr><td>SF-1</td><td>01/01/2025</td><td>Mal estacionado</td><td>Centro</td><td>5.000,00</td><td>Pagada</td></tr>
			</table></body></html>`))
		default:
			w.Write([]byte(`<html><body><form>
				<input type="hidden" name="org.apache.struts.taglib.html.TOKEN" value="tok" />
			</form></body></html>`))
		}
	}))
	defer server.Close()

	adapter := NewSantaFeAdapter(santafeTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFound, result.Kind)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Provincia de Santa Fe", result.Records[0].Jurisdiccion)
}
