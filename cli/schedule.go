package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/config"
	"github.com/vnkhanh/vocasync/services"
)

type ScheduleOptions struct {
	*RootOptions
	Rating      int
	Interval    int
	EaseFactor  float64
	Repetitions int
	New         bool

	// Subject and WordID load the current schedule from the store instead
	// of the flags above.
	Subject string
	WordID  string
}

type scheduleResult struct {
	Interval     int     `json:"interval"`
	EaseFactor   float64 `json:"easeFactor"`
	Repetitions  int     `json:"repetitions"`
	NextReviewAt int64   `json:"nextReviewAt"`
}

// NewScheduleCommand runs one SM-2 step, handy for checking what a client
// should have computed.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the next SM-2 schedule for a rating",
		Long: `Compute the next SM-2 schedule for a rating.

Example:
  vocasync schedule --new --rating 3
  vocasync schedule --rating 4 --interval 6 --ease 2.5 --reps 2
  vocasync schedule --rating 4 --subject google:1234 --word serendipity`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := opts.currentSchedule(cmd.Context())
			if err != nil {
				return err
			}
			return runSchedule(opts, current, time.Now(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.Rating, "rating", "r", 0, "rating 1..5 (required)")
	cmd.Flags().IntVar(&opts.Interval, "interval", 1, "current interval in days")
	cmd.Flags().Float64Var(&opts.EaseFactor, "ease", services.InitialEaseFactor, "current ease factor")
	cmd.Flags().IntVar(&opts.Repetitions, "reps", 0, "current repetition count")
	cmd.Flags().BoolVar(&opts.New, "new", false, "the word has never been reviewed")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "read the current schedule of --word from this user's store")
	cmd.Flags().StringVar(&opts.WordID, "word", "", "word id to look up with --subject")
	_ = cmd.MarkFlagRequired("rating")
	cmd.MarkFlagsRequiredTogether("subject", "word")
	return cmd
}

// currentSchedule returns nil for a word that was never reviewed.
func (o *ScheduleOptions) currentSchedule(ctx context.Context) (*services.Schedule, error) {
	if o.Subject == "" {
		if o.New {
			return nil, nil
		}
		return &services.Schedule{Interval: o.Interval, EaseFactor: o.EaseFactor, Repetitions: o.Repetitions}, nil
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	return storedSchedule(ctx, services.NewSyncService(st, services.WithStoreTimeout(cfg.StoreTimeout)), o.Subject, o.WordID)
}

func storedSchedule(ctx context.Context, svc *services.SyncService, subject, wordID string) (*services.Schedule, error) {
	state, ok, err := svc.Review(ctx, subject, wordID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if state.Interval < 1 {
		return nil, errors.New("stored review state has no interval")
	}
	return &services.Schedule{Interval: state.Interval, EaseFactor: state.EaseFactor, Repetitions: state.Repetitions}, nil
}

func runSchedule(opts *ScheduleOptions, current *services.Schedule, now time.Time, out io.Writer) error {
	next, err := services.NextSchedule(current, services.Rating(opts.Rating), now)
	if err != nil {
		return err
	}

	res := scheduleResult{
		Interval:     next.Interval,
		EaseFactor:   next.EaseFactor,
		Repetitions:  next.Repetitions,
		NextReviewAt: next.NextReviewAt,
	}
	return writeOutput(out, opts.Format, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "interval=%dd ease=%.2f repetitions=%d next=%s\n",
			res.Interval, res.EaseFactor, res.Repetitions,
			time.UnixMilli(res.NextReviewAt).UTC().Format(time.RFC3339))
		return err
	})
}
