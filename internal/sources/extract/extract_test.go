package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formPage = `
<html><body>
<form id="form1" action="./consulta.aspx" method="post">
<input type="hidden" name="__VIEWSTATE" value="dDwtMTg3NjU0" />
<input type="hidden" name="__VIEWSTATEGENERATOR" value="CA0B0334" />
<input type="hidden" name="__EVENTVALIDATION" value="/wEWAgL" />
<input type="text" name="txtDominio" value="" />
</form>
</body></html>`

func TestInputValue(t *testing.T) {
	doc, err := Document(formPage)
	require.NoError(t, err)

	value, ok := InputValue(doc, "__VIEWSTATE")
	require.True(t, ok)
	assert.Equal(t, "dDwtMTg3NjU0", value)

	_, ok = InputValue(doc, "__NOPE")
	assert.False(t, ok)
}

func TestHiddenInputs(t *testing.T) {
	doc, err := Document(formPage)
	require.NoError(t, err)

	hidden := HiddenInputs(doc)
	assert.Len(t, hidden, 3)
	assert.Equal(t, "CA0B0334", hidden["__VIEWSTATEGENERATOR"])

	// Visible inputs are not hidden fields
	_, ok := hidden["txtDominio"]
	assert.False(t, ok)
}

func TestRows(t *testing.T) {
	page := `
<table id="resultados">
<tr><th>Acta</th><th>Fecha</th><th>Detalle</th></tr>
<tr><td>A-123</td><td>01/02/2024</td><td>Exceso de velocidad</td></tr>
<tr><td>A-456</td><td>15/03/2024</td><td>Semaforo en rojo</td></tr>
<tr><td colspan="3">Paginado</td></tr>
</table>`

	doc, err := Document(page)
	require.NoError(t, err)

	rows := Rows(doc, "#resultados tr", 3)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A-123", "01/02/2024", "Exceso de velocidad"}, rows[0])
	assert.Equal(t, "A-456", rows[1][0])
}

func TestRowsSkipsShortRows(t *testing.T) {
	page := `<table><tr><td>solo</td></tr><tr><td>a</td><td>b</td><td>c</td></tr></table>`
	doc, err := Document(page)
	require.NoError(t, err)

	rows := Rows(doc, "tr", 3)
	assert.Len(t, rows, 1)
}

func TestContainsAny(t *testing.T) {
	phrases := []string{"no registra infracciones", "sin resultados"}

	assert.True(t, ContainsAny("El dominio NO REGISTRA INFRACCIONES a la fecha", phrases))
	assert.True(t, ContainsAny("...Sin Resultados...", phrases))
	assert.False(t, ContainsAny("se encontraron 3 infracciones", phrases))
	assert.False(t, ContainsAny("", phrases))
}

func TestRecaptchaSiteKey(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"data attribute",
			`<div class="g-recaptcha" data-sitekey="6LdXaBcTAAAAAKfjkJf82jfks83jfKSDjfk39fk3"></div>`,
			"6LdXaBcTAAAAAKfjkJf82jfks83jfKSDjfk39fk3",
		},
		{
			"json config",
			`grecaptcha.render('widget', {"sitekey": "6Lc02bQZAAAAAJf8sk30fkdJF8skf03kfJDKf8s2"});`,
			"6Lc02bQZAAAAAJf8sk30fkdJF8skf03kfJDKf8s2",
		},
		{
			"api.js render parameter",
			`<script src="https://www.google.com/recaptcha/api.js?render=6LfRender000AAAAAfk3jfkdJF8skf03kfJDKf8s"></script>`,
			"6LfRender000AAAAAfk3jfkdJF8skf03kfJDKf8s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecaptchaSiteKey(tt.body))
		})
	}
}

func TestRecaptchaSiteKeyAbsent(t *testing.T) {
	assert.Equal(t, "", RecaptchaSiteKey("<html><body>plain page</body></html>"))
}
