package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"ecostim/adapters/excel"
	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/run"
	"ecostim/domain/stimulus"
	"ecostim/internal/blocks"
	"ecostim/internal/sampling"
)

func newBlocksCmd() *cobra.Command {
	var in, out string
	var n int
	var seed int64
	var trials bool

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Partition a stimulus or trial set into balanced presentation blocks",
		Long: `Deals each organic_badge x eco_signal x salience group round-robin across
the blocks so every block carries the same mix, then shuffles each block.
With --trials the input is a trial set stratified over its 8 trial cells.

Writes the input columns plus a block column (1-based).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("n") {
				a.Config.Design.Blocks = n
			}
			if cmd.Flags().Changed("seed") {
				a.Config.Design.Seed = seed
			}
			if trials {
				if !cmd.Flags().Changed("in") {
					in = "trials.csv"
				}
				if !cmd.Flags().Changed("out") {
					out = "trial_blocks.csv"
				}
				return runTrialBlocks(cmd.Context(), a, a.dataPath(in), a.dataPath(out))
			}
			return runBlocks(cmd.Context(), a, a.dataPath(in), a.dataPath(out))
		},
	}

	cmd.Flags().StringVar(&in, "in", "stimulus_set.csv", "Stimulus set (trials.csv with --trials)")
	cmd.Flags().StringVar(&out, "out", "stimulus_blocks.csv", "Blocked output (trial_blocks.csv with --trials)")
	cmd.Flags().BoolVar(&trials, "trials", false, "Partition a trial set instead of a stimulus set")
	cmd.Flags().IntVar(&n, "n", 0, "Number of blocks (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	return cmd
}

func runBlocks(ctx context.Context, a *app, in, out string) error {
	stims, err := excel.NewDataReader(in, a.Logger).ReadStimuli(ctx)
	if err != nil {
		return err
	}
	bs, err := blocks.StimulusBlocks(stims, a.Config.Design.Blocks, sampling.NewStream(a.Config.Design.Seed))
	if err != nil {
		return err
	}

	header := append(append([]string(nil), excel.StimulusColumns...), "block")
	var records [][]string
	for _, b := range bs {
		counts := map[product.Cell]int{}
		for _, s := range b.Stimuli {
			records = append(records, append(excel.StimulusRecord(s), strconv.Itoa(b.Index+1)))
			counts[s.Cell()]++
		}
		fmt.Printf("block %d: %d stimuli", b.Index+1, len(b.Stimuli))
		for _, c := range product.Cells {
			fmt.Printf("  %s=%d", c, counts[c])
		}
		fmt.Println()
	}
	if err := excel.NewDataWriter(out).Write(ctx, header, records); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func runTrialBlocks(ctx context.Context, a *app, in, out string) error {
	trials, err := excel.NewDataReader(in, a.Logger).ReadTrials(ctx)
	if err != nil {
		return err
	}
	parts, err := blocks.TrialBlocks(trials, a.Config.Design.Blocks, sampling.NewStream(a.Config.Design.Seed))
	if err != nil {
		return err
	}

	header := append(append([]string(nil), excel.TrialColumns...), "block")
	var records [][]string
	for i, p := range parts {
		congruent := 0
		for _, t := range p {
			records = append(records, append(excel.TrialRecord(t), strconv.Itoa(i+1)))
			if t.Congruent {
				congruent++
			}
		}
		fmt.Printf("block %d: %d trials  congruent=%d incongruent=%d\n", i+1, len(p), congruent, len(p)-congruent)
	}
	if err := excel.NewDataWriter(out).Write(ctx, header, records); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func newRunCmd() *cobra.Command {
	var runID, in, participant, gender, diet string
	var age, n int
	var seed int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deliver a stimulus set to a participant in the terminal",
		Long: `Runs one rating session: consent, instructions, then every block in random
order with 1..7 ratings. Type q to abort; ratings given so far are saved.

Stimuli come from a stored run (--run-id) or a stimulus file (--in), which is
imported as a new run first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("blocks") {
				a.Config.Design.Blocks = n
			}
			if cmd.Flags().Changed("seed") {
				a.Config.Design.Seed = seed
			}
			p := stimulus.Participant{ID: participant, Gender: gender, Diet: diet}
			if age > 0 {
				p.Age = &age
			}
			return runDelivery(cmd.Context(), a, runID, in, p)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "Stored stimulus run")
	cmd.Flags().StringVar(&in, "in", "", "Stimulus file to import and run")
	cmd.Flags().StringVar(&participant, "participant", "", "Participant id (default anon)")
	cmd.Flags().IntVar(&age, "age", 0, "Participant age (kept within 10..100)")
	cmd.Flags().StringVar(&gender, "gender", "", "Participant gender")
	cmd.Flags().StringVar(&diet, "diet", "", "Participant diet")
	cmd.Flags().IntVar(&n, "blocks", 0, "Number of blocks (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.MarkFlagsMutuallyExclusive("run-id", "in")
	return cmd
}

func runDelivery(ctx context.Context, a *app, runIDStr, in string, p stimulus.Participant) error {
	if err := a.OpenStore(ctx); err != nil {
		return err
	}

	var runID core.RunID
	var err error
	switch {
	case in != "":
		if runID, err = importStimuli(ctx, a, a.dataPath(in)); err != nil {
			return err
		}
	case runIDStr != "":
		if runID, err = core.ParseRunID(runIDStr); err != nil {
			return err
		}
	default:
		return errors.New("either --run-id or --in is required")
	}

	stims, err := a.Stimuli.GetStimuli(ctx, runID)
	if err != nil {
		return err
	}
	if len(stims) == 0 {
		return core.NewNotFoundError("stimuli for run", runID.String())
	}

	stream, err := a.RNG.Stream(ctx, runID.String(), "console/"+p.ID+"/"+core.Now().FileStamp(), a.Config.Design.Seed)
	if err != nil {
		return err
	}

	// Ctrl-C ends the session like typing q: ratings so far are saved
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := a.TerminalRunner(os.Stdin, os.Stdout, a.dataPath("responses"))
	res, err := runner.Run(ctx, runID, stims, p, a.Config.Design.Blocks, stream)
	if errors.Is(err, core.ErrConsentDeclined) {
		fmt.Println("consent declined; no data saved")
		return nil
	}
	if err != nil {
		return err
	}
	state := "completed"
	if !res.Completed {
		state = "interrupted"
	}
	fmt.Printf("session %s %s: %d responses saved to %s\n", res.SessionID, state, len(res.Responses), res.Path)
	return nil
}

// importStimuli records a stimulus file as a new run so sessions can reference it.
func importStimuli(ctx context.Context, a *app, path string) (core.RunID, error) {
	stims, err := excel.NewDataReader(path, a.Logger).ReadStimuli(ctx)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	m := run.NewManifest(run.KindStimuli, a.Config.Design.Seed, map[string]interface{}{"imported": path}, len(stims))
	m.Built = len(stims)
	m.InputHash = core.NewHash(data)
	m.OutputHash = m.InputHash

	if err := a.OpenStore(ctx); err != nil {
		return "", err
	}
	if err := a.Runs.SaveRun(ctx, *m); err != nil {
		return "", err
	}
	if err := a.Stimuli.SaveStimuli(ctx, m.RunID, stims); err != nil {
		return "", err
	}
	a.Logger.Info("imported %d stimuli from %s as run %s", len(stims), path, m.RunID)
	return m.RunID, nil
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored stimulus runs to a browser front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("addr") {
				a.Config.Server.Addr = addr
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	if err := a.OpenStore(ctx); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := a.APIServer()
	return srv.ListenAndServe(ctx)
}
