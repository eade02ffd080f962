package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"nexus/internal/session"
	"nexus/internal/stream"
	"nexus/internal/types"
	"nexus/internal/wizard"
)

func newWizardCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Build the blueprint step by step in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			m := newWizardModel(cmd.Context(), e.session)
			prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			e.SetNotify(func(msg string) { go prog.Send(noticeMsg(msg)) })
			_, err := prog.Run()
			return err
		},
	}
}

type field struct {
	label string
	input textinput.Model
	get   func(types.ReportParameters) string
	set   func(*types.ReportParameters, string) error
}

func text(label string, get func(types.ReportParameters) string, set func(*types.ReportParameters, string)) field {
	return field{label: label, get: get, set: func(p *types.ReportParameters, v string) error {
		set(p, v)
		return nil
	}}
}

func joinIDs[T ~string](ids []T) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return strings.Join(out, ", ")
}

func parseIDs[T ~string](raw string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		id, err := parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func fieldsFor(step wizard.Step) []field {
	switch step {
	case wizard.Profile:
		return []field{
			text("Report name", func(p types.ReportParameters) string { return p.ReportName }, func(p *types.ReportParameters, v string) { p.ReportName = v }),
			text("Your name", func(p types.ReportParameters) string { return p.UserName }, func(p *types.ReportParameters, v string) { p.UserName = v }),
			text("Department", func(p types.ReportParameters) string { return p.UserDepartment }, func(p *types.ReportParameters, v string) { p.UserDepartment = v }),
			text("Organization type", func(p types.ReportParameters) string { return p.OrganizationType }, func(p *types.ReportParameters, v string) { p.OrganizationType = v }),
			{
				label: "Tiers (comma separated)",
				get:   func(p types.ReportParameters) string { return joinIDs(p.Tier) },
				set: func(p *types.ReportParameters, v string) error {
					ids, err := parseIDs(v, types.ParseTier)
					if err == nil {
						p.Tier = ids
					}
					return err
				},
			},
		}
	case wizard.Opportunity:
		return []field{
			text("Region", func(p types.ReportParameters) string { return p.Region }, func(p *types.ReportParameters, v string) { p.Region = v }),
			{
				label: "Industries (comma separated)",
				get:   func(p types.ReportParameters) string { return joinIDs(p.Industry) },
				set: func(p *types.ReportParameters, v string) error {
					ids, err := parseIDs(v, types.ParseIndustry)
					if err == nil {
						p.Industry = ids
					}
					return err
				},
			},
			text("Custom industry", func(p types.ReportParameters) string { return p.CustomIndustry }, func(p *types.ReportParameters, v string) { p.CustomIndustry = v }),
			text("Ideal partner", func(p types.ReportParameters) string { return p.IdealPartnerProfile }, func(p *types.ReportParameters, v string) { p.IdealPartnerProfile = v }),
		}
	case wizard.Objective:
		return []field{
			text("Core objective", func(p types.ReportParameters) string { return p.ProblemStatement }, func(p *types.ReportParameters, v string) { p.ProblemStatement = v }),
			text("Local context", func(p types.ReportParameters) string { return p.LocalContext }, func(p *types.ReportParameters, v string) { p.LocalContext = v }),
		}
	}
	return nil
}

type (
	snapshotMsg  stream.Snapshot
	generatedMsg struct {
		kind    string
		content string
		err     error
	}
	brainMsg struct {
		view string
		err  error
	}
	noticeMsg string
	pollMsg   time.Time
)

type wizardModel struct {
	ctx     context.Context
	session *session.Session

	step   wizard.Step
	fields []field
	focus  int

	status     string
	guidance   string
	busy       string
	cancel     context.CancelFunc
	updates    chan tea.Msg
	spinner    spinner.Model
	viewport   viewport.Model
	document   string
	width      int
	showingDoc bool
}

func newWizardModel(ctx context.Context, s *session.Session) *wizardModel {
	m := &wizardModel{
		ctx:      ctx,
		session:  s,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(100, 20),
		width:    100,
	}
	m.loadStep()
	return m
}

// loadStep rebuilds the inputs for the session's current step.
func (m *wizardModel) loadStep() {
	m.step = m.session.Step()
	p := m.session.Params()
	m.fields = fieldsFor(m.step)
	for i := range m.fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 2000
		in.Width = m.width - 30
		in.SetValue(m.fields[i].get(p))
		m.fields[i].input = in
	}
	m.focus = 0
	if len(m.fields) > 0 {
		m.fields[0].input.Focus()
	}
}

func (m *wizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, poll())
}

func poll() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func wait(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// commit writes the focused input back into the session.
func (m *wizardModel) commit() {
	if len(m.fields) == 0 {
		return
	}
	f := m.fields[m.focus]
	p := m.session.Params()
	if err := f.set(&p, f.input.Value()); err != nil {
		m.status = renderError(err)
		return
	}
	m.session.Update(func(cur *types.ReportParameters) { *cur = p })
	m.status = ""
}

func (m *wizardModel) setFocus(i int) {
	if len(m.fields) == 0 {
		return
	}
	m.fields[m.focus].input.Blur()
	m.focus = (i + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
}

func (m *wizardModel) generate(kind string) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.busy = "Generating " + kind
	m.showingDoc = true
	m.document = ""
	ch := make(chan tea.Msg, 1)
	m.updates = ch
	onUpdate := func(s stream.Snapshot) {
		select {
		case ch <- snapshotMsg(s):
		default:
		}
	}
	go func() {
		defer cancel()
		var (
			content string
			err     error
		)
		if kind == "letter" {
			content, err = m.session.Letter(ctx, onUpdate)
		} else {
			content, err = m.session.Submit(ctx, onUpdate)
		}
		// The final message must not be dropped; drain a stale snapshot.
		select {
		case <-ch:
		default:
		}
		ch <- generatedMsg{kind: kind, content: content, err: err}
	}()
	return tea.Batch(m.spinner.Tick, wait(ch))
}

func (m *wizardModel) runBrain() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.busy = "Diagnosing region"
	s := m.session
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		defer cancel()
		d, err := s.Diagnose(ctx)
		if err != nil {
			return brainMsg{err: err}
		}
		views := []string{renderDiagnosis(d)}
		if bp, err := s.Architect(ctx, ""); err == nil {
			views = append(views, renderBlueprint(bp))
		} else {
			return brainMsg{view: strings.Join(views, "\n"), err: err}
		}
		return brainMsg{view: strings.Join(views, "\n")}
	})
}

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-12, 5)
		for i := range m.fields {
			m.fields[i].input.Width = max(msg.Width-30, 20)
		}
		return m, nil

	case pollMsg:
		m.guidance = m.session.Guidance()
		return m, poll()

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.viewport.SetContent(msg.Content)
		m.viewport.GotoBottom()
		return m, wait(m.updates)

	case generatedMsg:
		m.busy = ""
		m.cancel = nil
		if msg.err != nil {
			m.status = renderError(msg.err)
			if msg.content != "" {
				m.viewport.SetContent(msg.content)
			}
			return m, nil
		}
		m.document = msg.content
		m.viewport.SetContent(renderMarkdown(msg.content, m.width-4))
		m.viewport.GotoTop()
		m.status = okStyle.Render(fmt.Sprintf("%s complete.", strings.ToUpper(msg.kind[:1])+msg.kind[1:]))
		return m, nil

	case brainMsg:
		m.busy = ""
		m.cancel = nil
		m.showingDoc = true
		if msg.view != "" {
			m.viewport.SetContent(msg.view)
			m.viewport.GotoTop()
		}
		if msg.err != nil {
			m.status = renderError(msg.err)
		}
		return m, nil

	case noticeMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.session.AnswerPrompt()
	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case "esc":
		if m.cancel != nil {
			m.cancel()
			m.session.Cancel()
			m.status = "Cancelled."
			return m, nil
		}
		if m.showingDoc {
			m.showingDoc = false
			return m, nil
		}
		m.session.Back()
		m.loadStep()
		return m, nil
	}
	if m.busy != "" {
		return m, nil
	}
	if m.showingDoc {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.step == wizard.Review {
		return m.handleReviewKey(msg)
	}
	switch msg.String() {
	case "tab", "down":
		m.commit()
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.commit()
		m.setFocus(m.focus - 1)
		return m, nil
	case "enter":
		m.commit()
		if err := m.session.Next(); err != nil {
			m.status = renderError(err)
			return m, nil
		}
		m.status = ""
		m.loadStep()
		return m, nil
	case "ctrl+p":
		if id, ok := m.session.AddSuggestedPersona(); ok {
			m.status = okStyle.Render("Added persona " + string(id) + ".")
		}
		return m, nil
	}
	if len(m.fields) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	m.commit()
	return m, cmd
}

func (m *wizardModel) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "g":
		return m, m.generate("report")
	case "l":
		return m, m.generate("letter")
	case "d":
		return m, m.runBrain()
	case "v":
		if m.document != "" || m.viewport.TotalLineCount() > 0 {
			m.showingDoc = true
		}
	case "s":
		if _, err := m.session.Save(m.ctx); err != nil {
			m.status = renderError(err)
		} else {
			m.status = okStyle.Render("Saved.")
		}
	case "n":
		if err := m.session.Reset(m.ctx); err != nil {
			m.status = renderError(err)
		}
		m.document = ""
		m.viewport.SetContent("")
		m.loadStep()
	case "b", "backspace":
		m.session.Back()
		m.loadStep()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render("Nexus Blueprint"), labelStyle.Render(fmt.Sprintf("Step %d/4: %s", int(m.step), m.step)))
	fmt.Fprintln(&b, wizard.HelpText(m.step))
	if m.guidance != "" {
		fmt.Fprintln(&b, labelStyle.Render(m.guidance))
	}
	fmt.Fprintln(&b)

	switch {
	case m.showingDoc:
		fmt.Fprintln(&b, m.viewport.View())
	case m.step == wizard.Review:
		p := m.session.Params()
		fmt.Fprintf(&b, "%s %s\n%s %s\n%s %s\n\n", labelStyle.Render("Report:"), p.ReportName,
			labelStyle.Render("Region:"), p.Region, labelStyle.Render("Objective:"), p.ProblemStatement)
		fmt.Fprint(&b, renderQuality(m.session.Quality()))
	default:
		for i, f := range m.fields {
			marker := "  "
			if i == m.focus {
				marker = "> "
			}
			fmt.Fprintf(&b, "%s%s %s\n", marker, labelStyle.Render(fmt.Sprintf("%-28s", f.label)), f.input.View())
		}
		fmt.Fprintln(&b)
		fmt.Fprint(&b, renderQuality(m.session.Quality()))
	}

	fmt.Fprintln(&b)
	if m.busy != "" {
		fmt.Fprintf(&b, "%s %s  (esc to cancel)\n", m.spinner.View(), m.busy)
	}
	if m.status != "" {
		fmt.Fprintln(&b, m.status)
	}
	if m.step == wizard.Review {
		fmt.Fprintln(&b, labelStyle.Render("g report  l letter  d diagnose  v view  s save  n new  b back  q quit"))
	} else {
		fmt.Fprintln(&b, labelStyle.Render("tab next field  enter next step  esc back  ctrl+p suggested persona  ctrl+c quit"))
	}
	return b.String()
}
