package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAutoJSON(t *testing.T) {
	v, err := Decode(TypeAuto, "application/json; charset=utf-8", []byte(`{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1)}, v)
}

func TestDecodeAutoFallsBackToStringOnBadJSON(t *testing.T) {
	v, err := Decode(TypeAuto, "application/json", []byte(`{"id":`))
	require.NoError(t, err)
	assert.Equal(t, `{"id":`, v)
}

func TestDecodeAutoPlainTextThatLooksLikeJSON(t *testing.T) {
	v, err := Decode(TypeAuto, "text/plain", []byte(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, v)
}

func TestDecodeAutoYAML(t *testing.T) {
	v, err := Decode(TypeAuto, "application/yaml", []byte("name: reqwatch\ncount: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "reqwatch", "count": 2}, v)
}

func TestDecodeAutoBinary(t *testing.T) {
	body := []byte{0x89, 0x50, 0x4e, 0x47}
	v, err := Decode(TypeAuto, "image/png", body)
	require.NoError(t, err)
	assert.Equal(t, body, v)
}

func TestDecodeAutoHTML(t *testing.T) {
	html := `<html><head>
<title> Fallback </title>
<meta property="og:title" content="OG Title">
<meta name="description" content="plain description">
<meta property="og:image" content="https://img/x.png">
<link rel="canonical" href="https://example.com/a">
</head><body></body></html>`

	v, err := Decode(TypeAuto, "text/html; charset=utf-8", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, PageMeta{
		Title:        "OG Title",
		Description:  "plain description",
		ImageURL:     "https://img/x.png",
		CanonicalURL: "https://example.com/a",
	}, v)
}

func TestDecodeExplicitJSONReportsErrors(t *testing.T) {
	_, err := Decode(TypeJSON, "", []byte("not json"))
	assert.Error(t, err)
}

func TestDecodeTextAndEmptyBody(t *testing.T) {
	v, err := Decode(TypeText, "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	v, err = Decode(TypeAuto, "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, TypeJSON, typ)

	typ, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeAuto, typ)

	_, err = ParseType("protobuf")
	assert.Error(t, err)
}
