package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nexus/internal/nexus"
	"nexus/internal/prompt"
	"nexus/internal/session"
	"nexus/internal/stream"
	"nexus/internal/types"
)

type envFunc func() *env

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newShowCmd(get envFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current blueprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := get().session.Params()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			out, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}

// setFlags are the blueprint fields settable from the command line. List
// flags replace the whole list.
type setFlags struct {
	reportName, userName, department, orgType, country string
	customPersona, region, customIndustry, partner     string
	objective, timeframe, localContext                  string
	tiers, personas, industries, modules, lenses, tones []string
}

func (f *setFlags) apply(cmd *cobra.Command, p *types.ReportParameters) error {
	changed := cmd.Flags().Changed
	str := map[string]*string{
		"name":            &p.ReportName,
		"user":            &p.UserName,
		"department":      &p.UserDepartment,
		"org":             &p.OrganizationType,
		"country":         &p.UserCountry,
		"custom-persona":  &p.CustomAIPersona,
		"region":          &p.Region,
		"custom-industry": &p.CustomIndustry,
		"partner":         &p.IdealPartnerProfile,
		"objective":       &p.ProblemStatement,
		"context":         &p.LocalContext,
	}
	vals := map[string]string{
		"name": f.reportName, "user": f.userName, "department": f.department, "org": f.orgType,
		"country": f.country, "custom-persona": f.customPersona, "region": f.region,
		"custom-industry": f.customIndustry, "partner": f.partner, "objective": f.objective,
		"context": f.localContext,
	}
	for name, dst := range str {
		if changed(name) {
			*dst = vals[name]
		}
	}
	if changed("timeframe") {
		p.AnalysisTimeframe = types.Timeframe(f.timeframe)
	}
	if changed("tier") {
		p.Tier = p.Tier[:0:0]
		for _, s := range f.tiers {
			id, err := types.ParseTier(s)
			if err != nil {
				return err
			}
			p.Tier = append(p.Tier, id)
		}
	}
	if changed("persona") {
		p.AIPersona = p.AIPersona[:0:0]
		for _, s := range f.personas {
			id, err := types.ParsePersona(s)
			if err != nil {
				return err
			}
			p.AIPersona = append(p.AIPersona, id)
		}
	}
	if changed("industry") {
		p.Industry = p.Industry[:0:0]
		for _, s := range f.industries {
			id, err := types.ParseIndustry(s)
			if err != nil {
				return err
			}
			p.Industry = append(p.Industry, id)
		}
	}
	if changed("module") {
		p.AnalyticalModules = p.AnalyticalModules[:0:0]
		for _, s := range f.modules {
			p.AnalyticalModules = append(p.AnalyticalModules, types.ModuleID(s))
		}
	}
	if changed("lens") {
		p.AnalyticalLens = append([]string(nil), f.lenses...)
	}
	if changed("tone") {
		p.ToneAndStyle = append([]string(nil), f.tones...)
	}
	return nil
}

func newSetCmd(get envFunc) *cobra.Command {
	f := &setFlags{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit blueprint fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := get().session.Params()
			if err := f.apply(cmd, &p); err != nil {
				return err
			}
			get().session.Update(func(m *types.ReportParameters) { *m = p })
			fmt.Fprint(cmd.OutOrStdout(), renderQuality(get().session.Quality()))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.reportName, "name", "", "report name")
	fl.StringVar(&f.userName, "user", "", "operator name")
	fl.StringVar(&f.department, "department", "", "operator department")
	fl.StringVar(&f.orgType, "org", "", "organization type")
	fl.StringVar(&f.country, "country", "", "operator country")
	fl.StringVar(&f.customPersona, "custom-persona", "", "custom persona description")
	fl.StringVar(&f.region, "region", "", "target region")
	fl.StringVar(&f.customIndustry, "custom-industry", "", "custom industry description")
	fl.StringVar(&f.partner, "partner", "", "ideal partner profile")
	fl.StringVar(&f.objective, "objective", "", "core objective / problem statement")
	fl.StringVar(&f.timeframe, "timeframe", "", "analysis timeframe")
	fl.StringVar(&f.localContext, "context", "", "local context notes")
	fl.StringSliceVar(&f.tiers, "tier", nil, "report tiers")
	fl.StringSliceVar(&f.personas, "persona", nil, "AI personas")
	fl.StringSliceVar(&f.industries, "industry", nil, "industries")
	fl.StringSliceVar(&f.modules, "module", nil, "analytical modules")
	fl.StringSliceVar(&f.lenses, "lens", nil, "analytical lenses")
	fl.StringSliceVar(&f.tones, "tone", nil, "tone and style")
	return cmd
}

func newToggleCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle FIELD VALUE",
		Short: "Add or remove one value of a multi-select field",
		Long:  "FIELD is one of tier, aiPersona, industry, analyticalLens, toneAndStyle, analyticalModules.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := get().session.Toggle(session.Field(args[0]), args[1])
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s must keep at least one value.\n", args[0])
			}
			return nil
		},
	}
}

func newScoreCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score the blueprint and list recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderQuality(get().session.Quality()))
			return nil
		},
	}
}

func newResetCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new blueprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return get().session.Reset(cmd.Context())
		},
	}
}

// documentCmd builds the report and letter commands, which share output
// handling.
func documentCmd(get envFunc, use, short string, run func(cmd *cobra.Command, s *session.Session, onUpdate func(stream.Snapshot)) (string, error)) *cobra.Command {
	var (
		out string
		raw bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			progress := cmd.ErrOrStderr()
			last := 0
			content, err := run(cmd, get().session, func(s stream.Snapshot) {
				if kb := len(s.Content) / 1024; kb > last {
					last = kb
					fmt.Fprintf(progress, "\rreceived %d KiB", kb)
				}
			})
			if last > 0 {
				fmt.Fprintln(progress)
			}
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
				return nil
			}
			if raw {
				_, err := io.WriteString(cmd.OutOrStdout(), content)
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderMarkdown(content, 100))
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the markdown to a file")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func newReportCmd(get envFunc) *cobra.Command {
	return documentCmd(get, "report", "Generate the report for the current blueprint",
		func(cmd *cobra.Command, s *session.Session, onUpdate func(stream.Snapshot)) (string, error) {
			return s.Submit(cmd.Context(), onUpdate)
		})
}

func newLetterCmd(get envFunc) *cobra.Command {
	return documentCmd(get, "letter", "Draft an outreach letter for the current blueprint",
		func(cmd *cobra.Command, s *session.Session, onUpdate func(stream.Snapshot)) (string, error) {
			return s.Letter(cmd.Context(), onUpdate)
		})
}

func newBrainCmd(get envFunc) *cobra.Command {
	var intervention, objective string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "brain",
		Short: "Diagnose the region, then optionally simulate and architect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := get().session
			w := cmd.OutOrStdout()
			d, err := s.Diagnose(cmd.Context())
			if err != nil {
				return err
			}
			results := map[string]any{"diagnosis": d}
			if intervention != "" {
				sim, err := s.Simulate(cmd.Context(), intervention)
				if err != nil {
					return err
				}
				results["simulation"] = sim
			}
			if cmd.Flags().Changed("architect") {
				bp, err := s.Architect(cmd.Context(), strings.TrimSpace(objective))
				if err != nil {
					return err
				}
				results["blueprint"] = bp
			}
			if asJSON {
				return printJSON(w, results)
			}
			fmt.Fprintln(w, renderDiagnosis(d))
			if sim, ok := results["simulation"].(types.InterventionSimulation); ok {
				fmt.Fprintln(w, renderSimulation(sim))
			}
			if bp, ok := results["blueprint"].(types.EcosystemBlueprint); ok {
				fmt.Fprintln(w, renderBlueprint(bp))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&intervention, "simulate", "", "intervention to simulate")
	cmd.Flags().StringVar(&objective, "architect", "", "design a partner ecosystem (empty uses the blueprint objective)")
	cmd.Flags().Lookup("architect").NoOptDefVal = " "
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSavedCmd(get envFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved blueprints",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved blueprints, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := get().session.Saved(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ReportName, p.Region)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "save",
			Short: "Save the current blueprint under its report name",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := get().session.Save(cmd.Context())
				return err
			},
		},
		&cobra.Command{
			Use:   "load NAME",
			Short: "Replace the current blueprint with a saved one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return get().session.LoadSaved(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a saved blueprint",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := get().session.DeleteSaved(cmd.Context(), args[0])
				return err
			},
		},
	)
	return cmd
}

func newInquireCmd(get envFunc) *cobra.Command {
	var file string
	var apply bool
	cmd := &cobra.Command{
		Use:   "inquire QUERY",
		Short: "Research a goal and propose blueprint fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := nexus.ScopeRequest{Query: strings.Join(args, " ")}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				req.FileContent = string(data)
			}
			res, err := get().session.Inquire(cmd.Context(), req)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, res.Summary)
			if err := printJSON(w, res.Suggestions); err != nil {
				return err
			}
			if apply {
				get().session.ApplySuggestions(res.Suggestions)
				fmt.Fprintln(w, okStyle.Render("Suggestions applied."))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "attach a text file as context")
	cmd.Flags().BoolVar(&apply, "apply", false, "merge the suggestions into the blueprint")
	return cmd
}

func newEconCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "econ COUNTRY",
		Short: "Show the latest economic indicators for a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := get().session.EconomicData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
}

func newRefineCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "refine",
		Short: "Rewrite the objective with economic context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := get().session.RefineObjective(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCapsCmd(get envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "caps",
		Short: "Show what the assistant can do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := get().session.Capabilities(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(c.Greeting))
			for _, cp := range c.Capabilities {
				fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(cp.Title+":"), cp.Description)
			}
			return nil
		},
	}
}

func newChatCmd(get envFunc) *cobra.Command {
	var finding string
	var raw bool
	cmd := &cobra.Command{
		Use:   "chat TOPIC",
		Short: "Ask follow-up questions about one finding, one question per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := types.ChatContext{Topic: strings.Join(args, " "), OriginalContent: finding}
			w, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
			show := func(md string) {
				if raw {
					fmt.Fprintln(w, md)
					return
				}
				fmt.Fprint(w, renderMarkdown(md, 0))
			}

			greeting := prompt.ChatGreeting(c)
			show(greeting)
			history := []types.ChatMessage{{Sender: types.SenderAI, Text: greeting}}
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				q := strings.TrimSpace(sc.Text())
				if q == "" {
					continue
				}
				history = append(history, types.ChatMessage{Sender: types.SenderUser, Text: q})
				answer, err := get().session.Chat(cmd.Context(), c, history)
				if err != nil {
					// the question stays unanswered; drop it so it can be asked again
					history = history[:len(history)-1]
					fmt.Fprintln(errw, renderError(err))
					if cmd.Context().Err() != nil {
						return err
					}
					continue
				}
				history = append(history, types.ChatMessage{Sender: types.SenderAI, Text: answer})
				show(answer)
			}
			return sc.Err()
		},
	}
	cmd.Flags().StringVar(&finding, "finding", "", "the report passage the conversation is about")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}
