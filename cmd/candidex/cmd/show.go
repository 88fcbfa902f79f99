package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var name string
	var format string

	cmd := &cobra.Command{
		Use:   "show <candidate-id>",
		Short: "Show every indexed chunk of one candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(false)
			if err != nil {
				return err
			}
			defer rt.cleanup()

			ctx := cmd.Context()
			c, err := rt.loadCorpus(ctx, name)
			if err != nil {
				return err
			}

			chunks, err := rt.engine.Candidate(ctx, c, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(chunks)
			}

			if len(chunks) == 0 {
				fmt.Fprintf(out, "No chunks for candidate %q.\n", args[0])
				return nil
			}
			for _, ch := range chunks {
				fmt.Fprintf(out, "[%s #%d] %s\n%s\n\n", ch.Type, ch.Seq, ch.ID, ch.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "default", "Corpus name")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
