package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFRendererRender(t *testing.T) {
	renderer := NewPDFRenderer()
	data := CertificateData{
		CertificateNumber: "e1_8f14e45f",
		StudentName:       "Sara Ahmed",
		CourseTitle:       "Introduction to Go",
		CompletionDate:    time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	}

	out, err := renderer.Render(data)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestPDFRendererRequiresFields(t *testing.T) {
	renderer := NewPDFRenderer()

	_, err := renderer.Render(CertificateData{CourseTitle: "Go"})
	assert.Error(t, err)

	_, err = renderer.Render(CertificateData{StudentName: "Sara"})
	assert.Error(t, err)
}
