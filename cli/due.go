package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/config"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

type DueOptions struct {
	*RootOptions
	Limit int
}

type dueItem struct {
	WordID       string  `json:"wordId"`
	Word         string  `json:"word,omitempty"`
	EaseFactor   float64 `json:"easeFactor"`
	Repetitions  int     `json:"repetitions"`
	NextReviewAt int64   `json:"nextReviewAt"`
	Mastered     bool    `json:"mastered"`
}

// NewDueCommand lists the words a user should review now, read straight from
// the store.
func NewDueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "due <subject>",
		Short:         "List reviews due for a subject",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			st, err := config.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			pulled, err := services.NewSyncService(st).Pull(cmd.Context(), args[0], 0)
			if err != nil {
				return err
			}
			return writeDue(opts, pulled, time.Now(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of words (0 = all)")
	return cmd
}

func writeDue(opts *DueOptions, pulled services.PullResult, now time.Time, out io.Writer) error {
	words := make(map[string]models.WordEntry, len(pulled.Words))
	for _, w := range pulled.Words {
		words[w.ID] = w
	}

	due := services.DueReviews(pulled.Reviews, now, opts.Limit)
	items := make([]dueItem, 0, len(due))
	for _, st := range due {
		items = append(items, dueItem{
			WordID:       st.WordID,
			Word:         words[st.WordID].Word,
			EaseFactor:   st.EaseFactor,
			Repetitions:  st.Repetitions,
			NextReviewAt: st.NextReviewAt,
			Mastered:     services.Mastered(st),
		})
	}

	return writeOutput(out, opts.Format, items, func(w io.Writer) error {
		if len(items) == 0 {
			_, err := fmt.Fprintln(w, "nothing due")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WORD\tEASE\tREPS\tDUE")
		for _, it := range items {
			label := it.Word
			if label == "" {
				label = it.WordID
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%d\t%s\n", label, it.EaseFactor, it.Repetitions,
				time.UnixMilli(it.NextReviewAt).UTC().Format(time.RFC3339))
		}
		return tw.Flush()
	})
}
