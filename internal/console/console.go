package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rahulsiiitm/kaizen-eparchi/internal/chat"
	"github.com/rahulsiiitm/kaizen-eparchi/internal/registry"
	"github.com/rahulsiiitm/kaizen-eparchi/internal/staging"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/config"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/interfaces"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/monitoring"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// App drives the interactive console. Each view refreshes its store on entry,
// so returning to a view always shows current data.
type App struct {
	backend interfaces.BackendClient
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	cfg     *config.Config

	patients *registry.PatientStore
	mailbox  *staging.Mailbox

	in  *bufio.Scanner
	out io.Writer
}

// New wires the console app. metrics may be nil when diagnostics are off.
func New(backend interfaces.BackendClient, log *logger.Logger, metrics *monitoring.MetricsCollector, cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		backend:  backend,
		logger:   log,
		metrics:  metrics,
		cfg:      cfg,
		patients: registry.NewPatientStore(backend, log),
		mailbox:  staging.NewMailbox(),
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run enters the home view and loops until quit or EOF.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Kaizen e-Parchi companion. Commands: list [YYYY-MM-DD], find <name>, stats, open <n>, add, quit")
	a.refreshPatients(ctx)
	a.printPatients()

	for {
		line, ok := a.prompt("> ")
		if !ok {
			return nil
		}
		cmd, arg := splitCommand(line)
		switch cmd {
		case "", "help":
			fmt.Fprintln(a.out, "Commands: list [YYYY-MM-DD], find <name>, stats, open <n>, add, quit")
		case "list":
			if err := a.patients.SetDate(ctx, arg); err != nil {
				fmt.Fprintln(a.out, err.Error())
				continue
			}
			a.printPatients()
		case "find":
			a.printPatientList(a.patients.Search(arg))
		case "stats":
			a.printStats()
		case "open":
			a.openPatient(ctx, arg)
			a.refreshPatients(ctx)
			a.printPatients()
		case "add":
			a.registerPatient(ctx)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(a.out, "Unknown command %q\n", cmd)
		}
	}
}

func (a *App) refreshPatients(ctx context.Context) {
	a.patients.Refresh(ctx)
}

func (a *App) printPatients() {
	if msg := a.patients.Err(); msg != "" {
		fmt.Fprintln(a.out, msg)
		return
	}
	a.printPatientList(a.patients.Patients())
}

func (a *App) printPatientList(list []types.Patient) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No patients found.")
		return
	}
	for i, p := range list {
		fmt.Fprintf(a.out, "%3d. %s (%d, %s) — visits: %d\n", i+1, p.Name, p.Age, p.Gender, p.TotalVisits)
	}
}

// printStats renders the dashboard view: headline counts, a seven-day
// activity chart, and the most recently seen patients.
func (a *App) printStats() {
	stats := registry.DeriveVisitStats(a.patients.Patients(), time.Now())
	fmt.Fprintf(a.out, "Today: %d  •  This month: %d  •  Total patients: %d\n", stats.Today, stats.Month, stats.Total)
	for _, day := range stats.Week {
		marker := " "
		if day.Today {
			marker = "*"
		}
		fmt.Fprintf(a.out, "  %s%s %s %s\n", marker, day.Label, day.Date, strings.Repeat("█", day.Count))
	}
	if len(stats.Recent) > 0 {
		fmt.Fprintln(a.out, "Recent:")
		for _, p := range stats.Recent {
			fmt.Fprintf(a.out, "  %s (%s)\n", p.Name, p.EffectiveVisitDate())
		}
	}
}

// openPatient is the detail view: visit history plus start-visit.
func (a *App) openPatient(ctx context.Context, arg string) {
	idx, err := strconv.Atoi(arg)
	list := a.patients.Patients()
	if err != nil || idx < 1 || idx > len(list) {
		fmt.Fprintln(a.out, "Usage: open <patient number>")
		return
	}
	patient := list[idx-1]

	visits := registry.NewVisitStore(a.backend, a.logger, patient.ID)
	for {
		visits.Refresh(ctx)
		history := visits.History()
		fmt.Fprintf(a.out, "%s — %d past visits\n", patient.Name, len(history))
		for i, v := range history {
			fmt.Fprintf(a.out, "%3d. visit %s (%s)\n", i+1, shortID(v.ID), v.EffectiveTime().Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(a.out, "Commands: visit (start new), chat <n>, back")

		line, ok := a.prompt(patient.Name + "> ")
		if !ok {
			return
		}
		cmd, arg := splitCommand(line)
		switch cmd {
		case "visit":
			visit, err := a.backend.StartVisit(ctx, patient.ID)
			if err != nil {
				fmt.Fprintln(a.out, registry.MsgCouldNotConnect)
				continue
			}
			a.chatView(ctx, patient, visit.ID, len(history)+1)
		case "chat":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 || n > len(history) {
				fmt.Fprintln(a.out, "Usage: chat <visit number>")
				continue
			}
			a.chatView(ctx, patient, history[n-1].ID, len(history)-n+1)
		case "back", "":
			return
		default:
			fmt.Fprintf(a.out, "Unknown command %q\n", cmd)
		}
	}
}

// chatView is the consultation view for one visit.
func (a *App) chatView(ctx context.Context, patient types.Patient, visitID string, visitNumber int) {
	session := chat.NewSession(a.backend, a.logger, a.metrics, a.cfg.Chat.Greeting, visitID, patient.ID)
	session.LoadHistory(ctx)
	session.DrainStaged(ctx, a.mailbox)

	fmt.Fprintf(a.out, "Visit #%d • Dr. AI — type a message, /attach to add files, /back to leave\n", visitNumber)
	a.printTranscript(session.Messages())

	for {
		line, ok := a.prompt("chat> ")
		if !ok {
			return
		}
		switch {
		case line == "/back":
			return
		case line == "/attach":
			a.attachView(visitID)
			// Re-entering the chat is the focus event that drains staging.
			before := len(session.Messages())
			session.DrainStaged(ctx, a.mailbox)
			a.printTranscript(session.Messages()[before:])
		case strings.TrimSpace(line) == "":
			continue
		default:
			before := len(session.Messages())
			session.Send(ctx, line)
			a.printTranscript(session.Messages()[before:])
		}
	}
}

// attachView is the upload view: accumulate picks, then confirm a document
// type for the whole batch and stage it for the chat view to drain.
func (a *App) attachView(visitID string) {
	picker := staging.NewPicker(a.logger, "")
	fmt.Fprintln(a.out, "Attach files. Commands: camera <path>, lib <path>, rm <path>, ls, done <prescription|xray>, cancel")

	for {
		line, ok := a.prompt(fmt.Sprintf("attach(%d)> ", picker.Count()))
		if !ok {
			return
		}
		cmd, arg := splitCommand(line)
		switch cmd {
		case "camera":
			picker.AddCamera(stagedFromPath(arg))
		case "lib":
			picker.AddLibrary(stagedFromPath(arg))
		case "rm":
			picker.Remove(arg)
		case "ls":
			for _, f := range picker.Selected() {
				fmt.Fprintf(a.out, "  [%s] %s\n", f.Origin, f.URI)
			}
		case "done":
			docType := types.DocumentType(arg)
			if docType != types.DocTypePrescription && docType != types.DocTypeXRay {
				fmt.Fprintln(a.out, "Usage: done <prescription|xray>")
				continue
			}
			batch, err := picker.Confirm(docType)
			if err != nil {
				var appErr *types.AppError
				if errors.As(err, &appErr) {
					fmt.Fprintln(a.out, appErr.Message)
				} else {
					fmt.Fprintln(a.out, err.Error())
				}
				continue
			}
			a.mailbox.Put(visitID, batch)
			if a.metrics != nil {
				a.metrics.RecordStagedBatch(len(batch.Files))
			}
			fmt.Fprintf(a.out, "%d files staged.\n", len(batch.Files))
			return
		case "cancel", "back":
			return
		default:
			fmt.Fprintf(a.out, "Unknown command %q\n", cmd)
		}
	}
}

// registerPatient is the add-patient view with field validation.
func (a *App) registerPatient(ctx context.Context) {
	name, ok := a.prompt("Name: ")
	if !ok {
		return
	}
	if strings.TrimSpace(name) == "" {
		fmt.Fprintln(a.out, "Name is required.")
		return
	}
	ageText, ok := a.prompt("Age: ")
	if !ok {
		return
	}
	age, err := strconv.Atoi(strings.TrimSpace(ageText))
	if err != nil || age <= 0 {
		fmt.Fprintln(a.out, "Age must be a positive number.")
		return
	}
	gender, ok := a.prompt("Gender: ")
	if !ok {
		return
	}
	if strings.TrimSpace(gender) == "" {
		fmt.Fprintln(a.out, "Gender is required.")
		return
	}

	patient, err := a.backend.CreatePatient(ctx, strings.TrimSpace(name), age, strings.TrimSpace(gender))
	if err != nil {
		fmt.Fprintln(a.out, registry.MsgCouldNotConnect)
		return
	}
	fmt.Fprintf(a.out, "Registered %s (id %s).\n", patient.Name, shortID(patient.ID))
}

func (a *App) printTranscript(messages []types.Message) {
	for _, msg := range messages {
		prefix := "Dr. AI"
		if msg.Sender == types.SenderDoctor {
			prefix = "You"
		}
		for _, f := range msg.Files {
			fmt.Fprintf(a.out, "%s: 📎 %s\n", prefix, f.Name)
		}
		content := chat.Render(msg.Text)
		if content.Kind == chat.ContentReport {
			a.printReport(prefix, content.Report)
			continue
		}
		for i, paragraph := range content.Paragraphs {
			var b strings.Builder
			if i == 0 {
				b.WriteString(prefix + ": ")
			} else {
				b.WriteString(strings.Repeat(" ", len(prefix)+2))
			}
			for _, span := range paragraph {
				if span.Bold {
					b.WriteString(ansiBold + span.Text + ansiReset)
				} else {
					b.WriteString(span.Text)
				}
			}
			fmt.Fprintln(a.out, b.String())
		}
	}
}

func (a *App) printReport(prefix string, report *chat.Report) {
	fmt.Fprintf(a.out, "%s: — medical report —\n", prefix)
	if report.Summary != "" {
		fmt.Fprintf(a.out, "  Analysis:  %s\n", report.Summary)
	}
	if report.Diagnosis != "" {
		fmt.Fprintf(a.out, "  Diagnosis: %s\n", report.Diagnosis)
	}
	if len(report.Medicines) > 0 {
		fmt.Fprintln(a.out, "  Prescription:")
		for _, med := range report.Medicines {
			fmt.Fprintf(a.out, "    • %s\n", med)
		}
	}
}

func (a *App) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		return "", false
	}
	return a.in.Text(), true
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return cmd, ""
	}
	return cmd, strings.TrimSpace(parts[1])
}

func stagedFromPath(path string) types.StagedFile {
	return types.StagedFile{
		URI:  path,
		Name: filepath.Base(path),
		MIME: mimeFromExt(path),
	}
}

func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
