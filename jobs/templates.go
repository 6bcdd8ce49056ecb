package jobs

import (
	"fmt"
	"html/template"
	"strings"
)

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "login-alert"}}
<html>
  <body>
    <p>Hi {{.name}},</p>
    <p>A new login to your account was recorded at {{.loginAt}}.</p>
    <p>If this was not you, change your password immediately.</p>
  </body>
</html>
{{end}}
`))

// RenderEmail renders a named email template with the given data.
func RenderEmail(name string, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := emailTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("jobs: render template %s: %w", name, err)
	}
	return sb.String(), nil
}
