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
	"multascan/internal/sources/codec"
	"multascan/internal/sources/session"
)

const cabaCipherKey = "9DB17053BCB342F6"

const cabaLandingPage = `<html><head><script>
	var idSesion = 'sess-42';
</script></head><body></body></html>`

func cabaTestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.Caba.BaseURL = baseURL
	cfg.Sources.Caba.CipherKey = cabaCipherKey
	return cfg
}

// decryptEvent recovers the event name from the encrypted p parameter
func decryptEvent(t *testing.T, p string) (sessionID, event string) {
	t.Helper()
	plain, err := codec.DecryptECB(p, []byte(cabaCipherKey))
	require.NoError(t, err)
	parts := []byte(plain)
	// control string is "<idSesion>;<event>"
	for i, b := range parts {
		if b == ';' {
			return string(parts[:i]), string(parts[i+1:])
		}
	}
	t.Fatalf("no separator in decrypted control string %q", plain)
	return "", ""
}

func TestCabaFiresModeSwitchBeforeQuery(t *testing.T) {
	var events []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/consultainfracciones/" {
			w.Write([]byte(cabaLandingPage))
			return
		}

		require.Equal(t, "/consultainfracciones/evento", r.URL.Path)
		p := r.URL.Query().Get("p")
		require.NotEmpty(t, p, "event call must carry the encrypted p parameter")

		sessionID, event := decryptEvent(t, p)
		assert.Equal(t, "sess-42", sessionID)
		events = append(events, event)

		switch event {
		case "activarModoConsulta":
			var args map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			assert.Empty(t, args)
			w.Write([]byte(`{}`))
		case "consultarDominio":
			var args map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			assert.Equal(t, "AB123CD", args["dominio"])

			w.Write([]byte(`<html><body><table class="resultado">
				<tr><th>Acta</th><th>Fecha</th><th>Infraccion</th><th>Lugar</th><th>Importe</th><th>Estado</th></tr>
				<tr><td>B-77</td><td>10/06/2025</td><td>Estacionamiento prohibido</td><td>Av. Corrientes 1500</td><td>$ 20.000,00</td><td>Pendiente</td></tr>
			</table></body></html>`))
		default:
			t.Fatalf("unexpected event %q", event)
		}
	}))
	defer server.Close()

	adapter := NewCabaAdapter(cabaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFound, result.Kind)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "B-77", *result.Records[0].Acta)
	assert.Equal(t, "Ciudad Autonoma de Buenos Aires", result.Records[0].Jurisdiccion)

	// The mode switch must strictly precede the query
	assert.Equal(t, []string{"activarModoConsulta", "consultarDominio"}, events)
}

func TestCabaMissingSessionIDFailsWithoutEvents(t *testing.T) {
	var events int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/consultainfracciones/evento" {
			events++
			return
		}
		// Landing page without the inline idSesion assignment
		w.Write([]byte(`<html><body>Bienvenido</body></html>`))
	}))
	defer server.Close()

	adapter := NewCabaAdapter(cabaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeSessionError, result.Err.Code)
	assert.Equal(t, 0, events, "must not fire events without a session id")
}

func TestCabaSentinelMeansEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/consultainfracciones/" {
			w.Write([]byte(cabaLandingPage))
			return
		}
		_, event := decryptEvent(t, r.URL.Query().Get("p"))
		if event == "activarModoConsulta" {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`<html><body><p>No se encontraron infracciones para el dominio consultado.</p></body></html>`))
	}))
	defer server.Close()

	adapter := NewCabaAdapter(cabaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	assert.Equal(t, sources.KindEmpty, result.Kind)
}

func TestCabaModeSwitchFailureAbortsQuery(t *testing.T) {
	var queries int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/consultainfracciones/" {
			w.Write([]byte(cabaLandingPage))
			return
		}
		_, event := decryptEvent(t, r.URL.Query().Get("p"))
		if event == "activarModoConsulta" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		queries++
	}))
	defer server.Close()

	adapter := NewCabaAdapter(cabaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeUpstreamUnavailable, result.Err.Code)
	assert.Equal(t, 0, queries, "query event must not fire after a failed mode switch")
}

func TestCabaNoSentinelNoRowsIsAmbiguous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/consultainfracciones/" {
			w.Write([]byte(cabaLandingPage))
			return
		}
		w.Write([]byte(`<html><body><div>respuesta inesperada</div></body></html>`))
	}))
	defer server.Close()

	adapter := NewCabaAdapter(cabaTestConfig(server.URL), session.Config{})
	result := adapter.Fetch(context.Background(), sources.Query{Plate: "AB123CD"})

	require.Equal(t, sources.KindFailed, result.Kind)
	assert.Equal(t, sources.CodeParseAmbiguous, result.Err.Code)
}
