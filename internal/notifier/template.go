package notifier

import (
	"html/template"
	"strings"
	"time"

	"darkroom/internal/services"
)

const bodyTemplate = `<html>
  <body>
    <h2>Your image is ready</h2>
    <p>Workflow <code>{{.WorkflowID}}</code> finished at {{.CompletedAt}}.</p>
    <p><a href="{{.Link}}">Download the annotated image</a></p>
    <p>The link stays valid for seven days.</p>
  </body>
</html>
`

var body = template.Must(template.New("notification").Parse(bodyTemplate))

type bodyData struct {
	WorkflowID  string
	CompletedAt string
	Link        string
}

func renderBody(workflowID, link string, completedAt time.Time) (string, error) {
	var sb strings.Builder
	data := bodyData{
		WorkflowID:  workflowID,
		CompletedAt: completedAt.UTC().Format(time.RFC3339),
		Link:        link,
	}
	if err := body.Execute(&sb, data); err != nil {
		return "", services.Wrap(services.ErrTransient, "notifier", "render", "", err)
	}
	return sb.String(), nil
}
