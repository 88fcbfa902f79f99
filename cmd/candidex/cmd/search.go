package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/candidex/candidex/internal/search"
)

type searchOptions struct {
	name           string
	limit          int
	mode           string // "hybrid", "semantic", "lexical"
	semanticWeight float64
	lexicalWeight  float64
	rerank         bool
	format         string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the candidate corpus",
		Long: `Search the candidate corpus.

Hybrid mode (the default) runs semantic and keyword search in parallel
and fuses the rankings with Reciprocal Rank Fusion.

Examples:
  candidex search "machine learning" --name engineering
  candidex search "Goldman Sachs" --mode lexical
  candidex search "platform engineer" --rerank --limit 5
  candidex search "fintech payments" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "default", "Corpus name")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: hybrid, semantic, lexical")
	cmd.Flags().Float64Var(&opts.semanticWeight, "semantic-weight", 0, "Semantic weight for fusion")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", 0, "Lexical weight for fusion")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Refine the top results with the cross-encoder")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	rt, err := newRuntime(opts.rerank)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	ctx := cmd.Context()
	c, err := rt.loadCorpus(ctx, opts.name)
	if err != nil {
		return err
	}

	var rs *search.ResultSet
	switch opts.mode {
	case "hybrid":
		w := search.Weights{Semantic: opts.semanticWeight, Lexical: opts.lexicalWeight}
		if w == (search.Weights{}) {
			w = search.Weights{
				Semantic: rt.cfg.Search.SemanticWeight,
				Lexical:  rt.cfg.Search.LexicalWeight,
			}
		}
		rs, err = rt.engine.Hybrid(ctx, c, query, opts.limit, w)
	case "semantic":
		rs, err = rt.engine.Semantic(ctx, c, query, opts.limit)
	case "lexical":
		rs, err = rt.engine.Lexical(ctx, c, query, opts.limit)
	default:
		return fmt.Errorf("unknown mode %q (want hybrid, semantic, or lexical)", opts.mode)
	}
	if err != nil {
		return err
	}

	if opts.rerank {
		rs, err = rt.engine.Rerank(ctx, query, rs, opts.limit, rt.cfg.Search.RecallMultiplier)
		if err != nil {
			return err
		}
	}

	return printResults(cmd, rs, opts.format)
}

// resultView is the JSON output shape for one result.
type resultView struct {
	Rank        int     `json:"rank"`
	CandidateID string  `json:"candidate_id"`
	ChunkID     string  `json:"chunk_id"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"`
	Content     string  `json:"content,omitempty"`
}

func printResults(cmd *cobra.Command, rs *search.ResultSet, format string) error {
	out := cmd.OutOrStdout()

	if format == "json" {
		views := make([]resultView, len(rs.Results))
		for i, r := range rs.Results {
			views[i] = resultView{
				Rank:        r.Rank,
				CandidateID: r.CandidateID,
				ChunkID:     r.ChunkID,
				Score:       r.Score,
				Source:      string(r.Source),
				Content:     r.Content,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Results  []resultView `json:"results"`
			Degraded bool         `json:"degraded"`
		}{views, rs.Degraded})
	}

	if rs.Degraded {
		fmt.Fprintln(out, "(degraded: a backend was unavailable, results from remaining stages)")
	}
	if len(rs.Results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for _, r := range rs.Results {
		fmt.Fprintf(out, "%2d. %-20s score=%.4f  [%s]\n", r.Rank, r.CandidateID, r.Score, r.Source)
		if r.Content != "" {
			fmt.Fprintf(out, "    %s\n", firstLine(r.Content))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
