package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/starwalkn/gotenberg-go-client/v8"
	"github.com/starwalkn/gotenberg-go-client/v8/document"

	"TC-CERT/internal/models"
)

// PDFService renders certificates through Gotenberg's Chromium route: the
// template's fields are laid out as absolutely positioned HTML over the
// background image and printed to PDF.
type PDFService struct {
	client  *gotenberg.Client
	timeout time.Duration
}

func NewPDFService(gotenbergURL string, timeoutStr string) (*PDFService, error) {
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client, err := gotenberg.NewClient(gotenbergURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gotenberg client: %w", err)
	}

	return &PDFService{
		client:  client,
		timeout: timeout,
	}, nil
}

// Page units are pixels at 300 DPI; Chromium prints CSS pixels at 96 DPI.
const cssScale = 96.0 / 300.0

const certificatePageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: {{printf "%.2f" .PageWidthMM}}mm {{printf "%.2f" .PageHeightMM}}mm; margin: 0; }
  html, body { margin: 0; padding: 0; }
  .page {
    position: relative;
    width: {{.Page.Width}}px;
    height: {{.Page.Height}}px;
    transform: scale({{.Scale}});
    transform-origin: top left;
    overflow: hidden;
  }
  .page img.background {
    position: absolute;
    left: 0; top: 0;
    width: {{.Page.Width}}px;
    height: {{.Page.Height}}px;
  }
  .field { position: absolute; display: table; }
  .field span { display: table-cell; vertical-align: middle; }
</style>
</head>
<body>
<div class="page">
{{if .BackgroundURL}}<img class="background" src="{{.BackgroundURL}}">{{end}}
{{range .Fields}}
  <div class="field" style="left:{{.X}}px;top:{{.Y}}px;width:{{.Width}}px;height:{{.Height}}px;">
    <span style="font-size:{{.FontSize}}px;font-family:{{.FontFamily}};color:{{.Color}};text-align:{{.Align}};{{if .Bold}}font-weight:bold;{{end}}{{if .Italic}}font-style:italic;{{end}}width:{{.Width}}px;">{{.Value}}</span>
  </div>
{{end}}
</div>
</body>
</html>`

var certificatePage = template.Must(template.New("certificate").Parse(certificatePageTemplate))

type renderedField struct {
	X, Y, Width, Height float64
	FontSize            float64
	FontFamily          string
	Color               string
	Align               string
	Bold, Italic        bool
	Value               string
}

// RenderCertificate builds the certificate HTML from the template layout and
// merged field values and converts it to a PDF stream. Fields without a
// value render empty rather than being dropped, so the layout stays stable.
func (s *PDFService) RenderCertificate(ctx context.Context, tpl *models.CertificateTemplate, values map[string]string, backgroundURL string) (io.ReadCloser, error) {
	fields, err := tpl.FieldList()
	if err != nil {
		return nil, err
	}

	page := tpl.Page()
	data := struct {
		Page          struct{ Width, Height float64 }
		PageWidthMM   float64
		PageHeightMM  float64
		Scale         float64
		BackgroundURL string
		Fields        []renderedField
	}{
		PageWidthMM:   page.Width / 300.0 * 25.4,
		PageHeightMM:  page.Height / 300.0 * 25.4,
		Scale:         cssScale,
		BackgroundURL: backgroundURL,
	}
	data.Page.Width = page.Width
	data.Page.Height = page.Height

	for _, f := range fields {
		data.Fields = append(data.Fields, renderedField{
			X: f.X, Y: f.Y, Width: f.Width, Height: f.Height,
			FontSize:   f.FontSize,
			FontFamily: f.FontFamily,
			Color:      f.Color,
			Align:      f.Align,
			Bold:       f.Bold,
			Italic:     f.Italic,
			Value:      values[f.ID],
		})
	}

	var html bytes.Buffer
	if err := certificatePage.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to build certificate HTML: %w", err)
	}

	return s.convertWithRetry(ctx, html.Bytes(), 3)
}

func (s *PDFService) convertWithRetry(ctx context.Context, html []byte, maxRetries int) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		convertCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		index, err := document.FromReader("index.html", bytes.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("failed to create document from HTML: %w", err)
		}

		req := gotenberg.NewHTMLRequest(index)

		resp, err := s.client.Send(convertCtx, req)
		if err == nil {
			return resp.Body, nil
		}

		lastErr = err
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return nil, fmt.Errorf("failed to convert certificate after %d attempts: %w", maxRetries, lastErr)
}

func (s *PDFService) Close() error {
	return nil
}
