package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLText_SkipsInvisibleElements(t *testing.T) {
	page := `<html><head><title> Bericht  Haft </title><style>p{color:red}</style></head>
<body>
<script>var x = "geheim";</script>
<noscript>Bitte JavaScript aktivieren</noscript>
<h1>Festnahme in Kassel</h1>
<p>Am 3. März wurde  die Person
   festgenommen.</p>
</body></html>`

	text, title, err := HTMLText(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Bericht Haft", title)
	assert.Contains(t, text, "Festnahme in Kassel")
	assert.Contains(t, text, "Am 3. März wurde die Person festgenommen.")
	assert.NotContains(t, text, "geheim")
	assert.NotContains(t, text, "JavaScript")
	assert.NotContains(t, text, "color")
	assert.NotContains(t, text, "Bericht Haft", "title belongs in the title, not the body")
}

func TestHTMLText_TableRowsBecomePipeRows(t *testing.T) {
	page := `<table>
<tr><th>Nr.</th><th>Feld</th><th>Wert</th></tr>
<tr><td>2401</td><td>Beteiligung-Datensatznummer</td><td>B-7</td></tr>
<tr><td>2422</td><td>Beginn</td><td><b>2024-03-01</b></td></tr>
</table>`

	text, _, err := HTMLText(strings.NewReader(page))
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	assert.Contains(t, lines, "| Nr. | Feld | Wert |")
	assert.Contains(t, lines, "| 2401 | Beteiligung-Datensatznummer | B-7 |")
	assert.Contains(t, lines, "| 2422 | Beginn | 2024-03-01 |")
}

func TestHTMLText_OneLinePerBlock(t *testing.T) {
	text, _, err := HTMLText(strings.NewReader(`<div><p>eins</p><p></p><p></p><p>zwei <i>drei</i></p></div>`))
	require.NoError(t, err)
	assert.Equal(t, "eins\nzwei drei", text)
}

func TestHTMLText_PreKeepsLayout(t *testing.T) {
	text, _, err := HTMLText(strings.NewReader("<pre>101 Titel: Razzia\n\n\n102 Ort: Kassel</pre>"))
	require.NoError(t, err)
	assert.Equal(t, "101 Titel: Razzia\n\n102 Ort: Kassel", text)
}

func TestHTMLText_Empty(t *testing.T) {
	text, title, err := HTMLText(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, title)
}
