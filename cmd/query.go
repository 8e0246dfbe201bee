package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/ai"
	"github.com/wecollab/matchmaker/internal/filtering"
	"github.com/wecollab/matchmaker/internal/matchmaking"
	"github.com/wecollab/matchmaker/internal/profile"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Rank potential teammates for a student",
	Run: func(cmd *cobra.Command, _ []string) {
		query(cmd)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	addRequestFlags(queryCmd.Flags())
	queryCmd.Flags().Bool("explain", false, "attach AI explanations to the returned page")
	queryCmd.Flags().StringP("output", "o", outputText, "output format: text or json")
}

type queryOutput struct {
	*matchmaking.Result
	Explanations []*ai.Explanation `json:"explanations,omitempty"`
}

func query(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()
	flags := cmd.Flags()

	output, _ := flags.GetString("output")
	if output != outputText && output != outputJSON {
		logger.Fatal("unknown output format", zap.String("output", output))
	}

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer backend.Close()

	engine, err := newEngine(config.Matching, backend, logger)
	if err != nil {
		logger.Fatal("creating the matchmaking engine", zap.Error(err))
	}

	explain, _ := flags.GetBool("explain")
	var explainer ai.Explainer
	if explain {
		explainer, err = newExplainer(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("creating the AI explainer", zap.Error(err))
		}
		if explainer == nil {
			logger.Fatal("--explain requires ai.enabled in the config")
		}
	}

	req := requestFromFlags(flags)
	if err := req.ValidateOptions(engine.MaxPageSize()); err != nil {
		logger.Fatal("invalid query", zap.Error(err))
	}

	snap, err := engine.Snapshot(ctx)
	if err != nil {
		logger.Fatal("reading profiles", zap.Error(err))
	}

	if req.RequesterID == "" {
		req.RequesterID, err = pickRequester(snap)
		if err != nil {
			logger.Fatal("selecting the requester", zap.Error(err))
		}
	}
	requesterID := req.RequesterID

	result, err := engine.QuerySnapshot(ctx, req, snap)
	if err != nil {
		logger.Fatal("running the query", zap.Error(err))
	}

	out := queryOutput{Result: result}
	if explainer != nil && len(result.Results) > 0 {
		requester := snap.FindByID(requesterID)
		if requester == nil {
			requester, err = backend.GetProfile(ctx, requesterID)
			if err != nil {
				logger.Fatal("getting the requester profile", zap.Error(err))
			}
		}
		out.Explanations = ai.ExplainAll(ctx, explainer, requester, result.Results, aiWorkers(config.AI), logger)
	}

	if output == outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
		return
	}

	if err := printMatches(os.Stdout, out); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}
}

func addRequestFlags(fs *pflag.FlagSet) {
	fs.StringP("requester", "r", "", "id of the student looking for teammates (asked interactively when empty)")
	fs.String("university", "", "only candidates from this university")
	fs.String("skill", "", "only candidates with a skill containing this text")
	fs.String("role", "", "only candidates looking for this role")
	fs.StringP("search", "q", "", "free text search over name, bio, skills and interests")
	fs.Bool("online-only", false, "only candidates that are online")
	fs.StringP("sort", "s", "score", "sort order: score, name, university or online")
	fs.Int("page", 0, "zero based page number")
	fs.Int("page-size", matchmaking.DefaultPageSize, "results per page")
}

func requestFromFlags(flags *pflag.FlagSet) matchmaking.Request {
	var req matchmaking.Request
	req.RequesterID, _ = flags.GetString("requester")
	req.Filters.University, _ = flags.GetString("university")
	req.Filters.Skill, _ = flags.GetString("skill")
	req.Filters.Role, _ = flags.GetString("role")
	req.Filters.Search, _ = flags.GetString("search")
	req.Filters.OnlineOnly, _ = flags.GetBool("online-only")
	req.SortKey, _ = flags.GetString("sort")
	req.Page, _ = flags.GetInt("page")
	req.PageSize, _ = flags.GetInt("page-size")
	return req
}

// pickRequester lets the user choose who is asking from the active profiles.
func pickRequester(snap *profile.Snapshot) (string, error) {
	items := snap.Items()
	if len(items) == 0 {
		return "", fmt.Errorf("there are no active profiles to choose from")
	}

	prompt := promptui.Select{
		Label: "Who is looking for teammates?",
		Items: items,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .DisplayName | cyan }} {{ .University | faint }}",
			Inactive: "  {{ .DisplayName }} {{ .University | faint }}",
			Selected: "requester: {{ .DisplayName | green }} ({{ .ID }})",
		},
		Searcher: func(input string, index int) bool {
			p := items[index]
			input = strings.ToLower(strings.TrimSpace(input))
			return strings.Contains(strings.ToLower(p.DisplayName), input) || strings.Contains(strings.ToLower(p.ID), input)
		},
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return items[index].ID, nil
}

func printMatches(w io.Writer, out queryOutput) error {
	res := out.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tID\tNAME\tUNIVERSITY\tSCORE\tQUALITY\tONLINE\tCOMMON INTERESTS\tCOMPLEMENTARY SKILLS")
	offset := res.Page * res.PageSize
	for i, m := range res.Results {
		online := ""
		if m.Candidate.Online {
			online = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			offset+i+1,
			m.Candidate.ID,
			m.Candidate.DisplayName,
			m.Candidate.University,
			m.Score,
			m.Quality,
			online,
			strings.Join(m.CommonInterests, ", "),
			strings.Join(m.ComplementarySkills, ", "),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d matches (%d online, %d high matches), showing %d from page %d, sorted by %s\n",
		res.TotalCount, res.OnlineCount, res.HighMatchCount, len(res.Results), res.Page, res.SortKey)
	fmt.Fprintf(w, "filters: %s\n", describeSteps(res.Steps))

	for i, e := range out.Explanations {
		if e == nil {
			continue
		}
		name := res.Results[i].Candidate.DisplayName
		if e.Error != "" {
			fmt.Fprintf(w, "\n%s: explanation failed: %s\n", name, e.Error)
			continue
		}
		fmt.Fprintf(w, "\n%s: %s\n", name, e.Summary)
		for _, line := range e.Icebreakers {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}

	return nil
}

func describeSteps(steps []filtering.StepReport) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, fmt.Sprintf("%s %d->%d", s.Name, s.Initial, s.Left))
	}
	return strings.Join(parts, ", ")
}
