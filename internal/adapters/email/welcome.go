package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Welcome is the mail sent after a successful registration.
type Welcome struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	LoginURL string `json:"login_url"`
}

const welcomeSubject = "Bem-vindo ao portal de eventos"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<p>Olá, {{.Name}}!</p>
<p>Seu cadastro foi realizado com sucesso.</p>
{{if .LoginURL}}<p><a href="{{.LoginURL}}">Entrar no portal</a></p>{{end}}
<p>Até breve!</p>`))

// Request renders w as a SendRequest.
// PRE: w.To is non-empty
func (w Welcome) Request() (SendRequest, error) {
	if strings.TrimSpace(w.To) == "" {
		return SendRequest{}, fmt.Errorf("welcome mail: recipient is required")
	}
	var buf bytes.Buffer
	if err := welcomeTmpl.Execute(&buf, w); err != nil {
		return SendRequest{}, fmt.Errorf("render welcome mail: %w", err)
	}
	return SendRequest{
		To:      []string{w.To},
		Subject: welcomeSubject,
		HTML:    buf.String(),
	}, nil
}
