package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/candidex/candidex/internal/corpus"
	cerrors "github.com/candidex/candidex/internal/errors"
	"github.com/candidex/candidex/internal/record"
)

func newBuildCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "build <records.json>",
		Short: "Build a searchable corpus from candidate records",
		Long: `Build chunks candidate records, embeds every chunk, writes the
corpus artifact, and refreshes the keyword index. Embeddings are served
from the disk cache when the text has been embedded before, so
rebuilding an unchanged dataset makes no remote calls.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(false)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			ctx := cmd.Context()
			records, err := record.Load(args[0])
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return cerrors.Wrap(cerrors.ErrCodeDatasetNotFound, err).
						WithSuggestion("check the records file path")
				}
				return cerrors.Wrap(cerrors.ErrCodeDatasetInvalid, err).
					WithSuggestion("the records file must be a JSON array of candidate objects")
			}

			start := time.Now()
			c, err := rt.engine.BuildCorpus(ctx, name, records)
			if err != nil {
				return err
			}

			path := corpus.ArtifactPath(rt.cfg.Paths.DataDir, name)
			if err := corpus.Save(ctx, path, c, corpus.SaveInfo{
				Model:   rt.cfg.Embed.Model,
				Dims:    c.Dimensions(),
				BuiltAt: time.Now().UTC(),
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Built corpus %q: %d candidates, %d chunks (%d dims) in %s\n",
				name, c.Candidates(), c.Len(), c.Dimensions(),
				time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(cmd.OutOrStdout(), "Artifact: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "default", "Corpus name")
	return cmd
}
