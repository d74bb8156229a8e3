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

const provinciaFormPage = `<html><body><form id="form1" method="post">
	<input type="hidden" name="__VIEWSTATE" value="vs-abc" />
	<input type="hidden" name="__VIEWSTATEGENERATOR" value="CA0B0334" />
	<input type="hidden" name="__EVENTVALIDATION" value="ev-def" />
	<input type="text" name="txtDominio" />
</form></body></html>`

func provinciaTestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.Provincia.BaseURL = baseURL
	return cfg
}

func TestProvinciaPostsHiddenStateAndParsesGrid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(provinciaFormPage))
			return
		}

		require.NoError(t, r.ParseForm())
		// The postback must echo every hidden field the server rendered
		assert.Equal(t, "vs-abc", r.PostForm.Get("__VIEWSTATE"))
		assert.Equal(t, "CA0B0334", r.PostForm.Get("__VIEWSTATEGENERATOR"))
		assert.Equal(t, "ev-def", r.PostForm.Get("__EVENTVALIDATION"))
		assert.Equal(t, "btnConsultar", r.PostForm.Get("__EVENTTARGET"))
		assert.Equal(t, "AB123CD", r.PostForm.Get("txtDominio"))

		w.Write([]byte(`<html><body><table id="gvDeuda">
			<tr><th>Acta</th><th>Fecha</th><th>Infraccion</th><th>Lugar</th><th>Importe</th><th>Estado</th></tr>
			<tr><td>P-901</td><td>03/01/2025</td><td>Exceso de velocidad</td><td>RP 2 km 80</td><td>$ 30.000,00</td><td>PENDIENTE</td></tr>
			<tr><td>P-902</td><td>09/02/2025</td><td>Luces apagadas</td><td>RP 6 km 12</td><td>$ 8.000,00</td><td>PAGADA</td></tr>
		</table></body></html>`))
	}))
	defer server.Close()

	adapter := NewProvinciaAdapter(provinciaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFound, result.Kind)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "P-901", *result.Records[0].Acta)
	assert.Equal(t, "pendiente", string(result.Records[0].Estado))
	assert.Equal(t, "pagada", string(result.Records[1].Estado))
	assert.Equal(t, "Provincia de Buenos Aires", result.Records[0].Jurisdiccion)
}

func TestProvinciaMissingEventValidationIsTokenNotFound(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			return
		}
		// Page with __VIEWSTATE but no __EVENTVALIDATION
		w.Write([]byte(`<html><body><form>
			<input type="hidden" name="__VIEWSTATE" value="vs-abc" />
		</form></body></html>`))
	}))
	defer server.Close()

	adapter := NewProvinciaAdapter(provinciaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeTokenNotFound, result.Err.Code)
	assert.Equal(t, 0, posts, "must not post without the full token set")
}

func TestProvinciaSentinelMeansEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(provinciaFormPage))
			return
		}
		w.Write([]byte(`<html><body><span id="lblResultado">El dominio NO REGISTRA DEUDA.</span></body></html>`))
	}))
	defer server.Close()

	adapter := NewProvinciaAdapter(provinciaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	assert.Equal(t, sources.KindEmpty, result.Kind)
}

func TestProvinciaMissingContainerIsAmbiguous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(provinciaFormPage))
			return
		}
		// No sentinel, no grid container at all
		w.Write([]byte(`<html><body><div class="aviso">Intente nuevamente</div></body></html>`))
	}))
	defer server.Close()

	adapter := NewProvinciaAdapter(provinciaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeParseAmbiguous, result.Err.Code)
}

func TestProvinciaRowlessContainerMeansEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(provinciaFormPage))
			return
		}
		// Container renders with only a header row and no sentinel text
		w.Write([]byte(`<html><body><table id="gvDeuda">
			<tr><th>Acta</th><th>Fecha</th><th>Infraccion</th><th>Lugar</th><th>Importe</th><th>Estado</th></tr>
		</table></body></html>`))
	}))
	defer server.Close()

	adapter := NewProvinciaAdapter(provinciaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	assert.Equal(t, sources.KindEmpty, result.Kind)
}
