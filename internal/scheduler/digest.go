package scheduler

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// kindLabels are the user-facing names for appointment kinds, used in mail
// bodies and digests.
var kindLabels = map[types.AppointmentKind]string{
	types.KindInitialMeeting: "Reunião inicial",
	types.KindD15:            "Acompanhamento D+15",
	types.KindD50:            "Acompanhamento D+50",
	types.KindFollowUp:       "Acompanhamento",
	types.KindTechnicalVisit: "Visita técnica",
	types.KindCustom:         "Compromisso",
}

func kindLabel(kind types.AppointmentKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return string(kind)
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Agendamento confirmado</h2>
  <p>Olá, {{.ClientName}}!</p>
  <p>Seu compromisso foi agendado:</p>
  <table cellpadding="4">
    <tr><td><strong>Compromisso:</strong></td><td>{{.Title}}</td></tr>
    <tr><td><strong>Tipo:</strong></td><td>{{.Kind}}</td></tr>
    <tr><td><strong>Data:</strong></td><td>{{.Date}}</td></tr>
    <tr><td><strong>Horário:</strong></td><td>{{.Time}}</td></tr>
    {{if .Location}}<tr><td><strong>Local:</strong></td><td>{{.Location}}</td></tr>{{end}}
  </table>
  <p>Até breve!<br>Equipe SABER Contabilidade</p>
</body>
</html>`))

// confirmationMessage renders the client-facing confirmation mail sent after
// an appointment is mirrored into the calendar.
func confirmationMessage(appt *types.Appointment, client *types.Client) (subject, body string) {
	data := struct {
		ClientName string
		Title      string
		Kind       string
		Date       string
		Time       string
		Location   string
	}{
		ClientName: client.Name,
		Title:      appt.Title,
		Kind:       kindLabel(appt.Kind),
		Date:       appt.ScheduledAt.Format("02/01/2006"),
		Time:       appt.ScheduledAt.Format("15:04"),
		Location:   appt.Location,
	}

	var buf bytes.Buffer
	// The template only references fields of the struct above; it cannot
	// fail at execution time.
	_ = confirmationTmpl.Execute(&buf, data)

	subject = fmt.Sprintf("Agendamento confirmado - %s", appt.ScheduledAt.Format("02/01/2006"))
	return subject, buf.String()
}

// digestEntry is one line of an owner's daily digest.
type digestEntry struct {
	Time       string
	Title      string
	ClientName string
	Kind       string
	Location   string
}

var digestTmpl = template.Must(template.New("digest").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Seus compromissos de hoje</h2>
  <p>Olá, {{.OwnerName}}! Você tem {{len .Entries}} compromisso(s) pendente(s) hoje ({{.Date}}):</p>
  <table cellpadding="6" border="1" style="border-collapse: collapse;">
    <tr>
      <th>Horário</th><th>Compromisso</th><th>Cliente</th><th>Tipo</th><th>Local</th>
    </tr>
    {{range .Entries}}
    <tr>
      <td>{{.Time}}</td>
      <td>{{.Title}}</td>
      <td>{{if .ClientName}}{{.ClientName}}{{else}}&mdash;{{end}}</td>
      <td>{{.Kind}}</td>
      <td>{{if .Location}}{{.Location}}{{else}}A definir{{end}}</td>
    </tr>
    {{end}}
  </table>
  <p>Bom trabalho!<br>Equipe SABER Contabilidade</p>
</body>
</html>`))

// digestMessage renders one owner's daily digest mail.
func digestMessage(ownerName string, day time.Time, entries []digestEntry) (subject, body string, err error) {
	data := struct {
		OwnerName string
		Date      string
		Entries   []digestEntry
	}{
		OwnerName: ownerName,
		Date:      day.Format("02/01/2006"),
		Entries:   entries,
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, data); err != nil {
		return "", "", types.NewAppError(types.ErrCodeInternalUnexpected, "rendering digest template", err)
	}

	subject = fmt.Sprintf("Lembretes do dia - %s", day.Format("02/01/2006"))
	return subject, buf.String(), nil
}
