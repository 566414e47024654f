package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateRenderer(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)
	assert.Contains(t, r.templates, "checkout.html")
	assert.Contains(t, r.templates, "payment_status.html")

	var buf bytes.Buffer
	err = r.Render(&buf, "missing.html", nil, nil)
	assert.Error(t, err)
}
