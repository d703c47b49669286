package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	ts := NewTemplateService()

	out, err := ts.Render("Hi {{ name }}, welcome to {{ business_name }}!",
		map[string]any{"name": "Jamie", "business_name": "Rivera Coffee"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Jamie, welcome to Rivera Coffee!", out)
}

func TestRenderMissingVariableEmpty(t *testing.T) {
	ts := NewTemplateService()

	out, err := ts.Render("Hi {{ name }}!", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Hi !", out)
}

func TestDefaultFilter(t *testing.T) {
	ts := NewTemplateService()

	out, err := ts.Render(`Hi {{ name | default: "there" }}!`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", out)

	out, err = ts.Render(`Hi {{ name | default: "there" }}!`, map[string]any{"name": "Jamie"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Jamie!", out)
}

func TestFirstWordFilter(t *testing.T) {
	ts := NewTemplateService()

	out, err := ts.Render("{{ name | first_word }}", map[string]any{"name": "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", out)

	out, err = ts.Render("{{ name | first_word }}", map[string]any{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRenderParseError(t *testing.T) {
	ts := NewTemplateService()
	_, err := ts.Render("{% if %}", nil)
	assert.Error(t, err)
}

func TestRenderReusesParsedTemplate(t *testing.T) {
	ts := NewTemplateService()
	src := "Hello {{ name }}"

	first, err := ts.Render(src, map[string]any{"name": "A"})
	require.NoError(t, err)
	second, err := ts.Render(src, map[string]any{"name": "B"})
	require.NoError(t, err)

	assert.Equal(t, "Hello A", first)
	assert.Equal(t, "Hello B", second)
}
