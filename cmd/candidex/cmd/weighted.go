package cmd

import (
	"github.com/spf13/cobra"

	"github.com/candidex/candidex/internal/search"
)

// weightedOptions holds one query and weight per criterion. A
// criterion with an empty query or zero weight is inactive; the rest
// are renormalized over the active set.
type weightedOptions struct {
	name      string
	limit     int
	threshold float64
	format    string

	experience       string
	experienceWeight float64
	education        string
	educationWeight  float64
	skills           string
	skillsWeight     float64
	company          string
	companyWeight    float64
}

func newWeightedCmd() *cobra.Command {
	var opts weightedOptions

	cmd := &cobra.Command{
		Use:   "weighted",
		Short: "Score candidates against multiple weighted criteria",
		Long: `Weighted search scores every candidate against up to four
criteria at once and combines the per-criterion similarities by
normalized weight. Results are candidates, not chunks, and a total
below the threshold is excluded outright.

Examples:
  candidex weighted --skills "Python, ML" --skills-weight 0.6 \
      --education "PhD computer science" --education-weight 0.4
  candidex weighted --experience "led a payments team" --experience-weight 1 \
      --threshold 0.4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWeighted(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "default", "Corpus name")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of candidates")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum combined score")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	cmd.Flags().StringVar(&opts.experience, "experience", "", "Experience criterion text")
	cmd.Flags().Float64Var(&opts.experienceWeight, "experience-weight", 0, "Experience criterion weight")
	cmd.Flags().StringVar(&opts.education, "education", "", "Education criterion text")
	cmd.Flags().Float64Var(&opts.educationWeight, "education-weight", 0, "Education criterion weight")
	cmd.Flags().StringVar(&opts.skills, "skills", "", "Skills criterion text")
	cmd.Flags().Float64Var(&opts.skillsWeight, "skills-weight", 0, "Skills criterion weight")
	cmd.Flags().StringVar(&opts.company, "company", "", "Company criterion text")
	cmd.Flags().Float64Var(&opts.companyWeight, "company-weight", 0, "Company criterion weight")
	return cmd
}

func runWeighted(cmd *cobra.Command, opts weightedOptions) error {
	rt, err := newRuntime(false)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	ctx := cmd.Context()
	c, err := rt.loadCorpus(ctx, opts.name)
	if err != nil {
		return err
	}

	criteria := []search.Criterion{
		{Name: "experience", Query: opts.experience, Weight: opts.experienceWeight},
		{Name: "education", Query: opts.education, Weight: opts.educationWeight},
		{Name: "skills", Query: opts.skills, Weight: opts.skillsWeight},
		{Name: "company", Query: opts.company, Weight: opts.companyWeight},
	}

	rs, err := rt.engine.Weighted(ctx, c, criteria, opts.threshold, opts.limit)
	if err != nil {
		return err
	}
	return printResults(cmd, rs, opts.format)
}
