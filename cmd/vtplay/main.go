// Command vtplay plays a video file as color animation in an ANSI-capable
// terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	vtlog "github.com/vtrender/vtrender/log"
	"github.com/vtrender/vtrender/player"
	"github.com/vtrender/vtrender/profile"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logCfg := vtlog.NewConfig()
	profileCfg := profile.NewConfig()
	playerCfg := player.NewConfig()

	var profiler *profile.Profiler

	rootCmd := &cobra.Command{
		Use:   "vtplay [video]",
		Short: "Play a video file as color animation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := logCfg.NewHandler(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("configuring logger: %w", err)
			}

			logger := newLogger(handler)
			cmd.SetContext(withLogger(cmd.Context(), logger))

			profiler = profileCfg.NewProfiler()
			profiler.Logger = logger

			return profiler.Start()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return profiler.Stop()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayback(cmd, args, playerCfg)
		},
		SilenceUsage: true,
	}

	playerCfg.RegisterFlags(rootCmd.Flags())
	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	profileCfg.RegisterFlags(rootCmd.PersistentFlags())

	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if err := playerCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if err := profileCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return player.ExitCode(err)
	}

	return lastExitCode
}

// lastExitCode records the exit code of the most recent playback attempt.
// run returns it only when RunE returned nil; when RunE returned an error,
// run maps that error through player.ExitCode instead.
var lastExitCode int

func runPlayback(cmd *cobra.Command, args []string, cfg *player.Config) error {
	if len(args) == 1 {
		cfg.PlaybackConfig.VideoPath = args[0]
	}

	playback, err := cfg.Resolve(cmd.Flags())
	if err != nil {
		lastExitCode = player.ExitCode(err)

		return err
	}

	if playback.VideoPath == "" {
		selected, fit, menuErr := runMenu(cmd.Context())
		if menuErr != nil {
			lastExitCode = player.ExitCode(menuErr)

			return menuErr
		}

		playback.VideoPath = selected
		playback.FitMode = fit
	}

	logger := loggerFrom(cmd.Context())

	probe := player.StdTerminalProbe{FD: int(os.Stdout.Fd())}

	p, err := player.New(cmd.Context(), playback, probe, logger)
	if err != nil {
		lastExitCode = player.ExitCode(err)

		return err
	}

	crashRecords := p.CrashLog().Subscribe()

	stats, err := p.Run(cmd.Context())

	drainCrashRecords(cmd.ErrOrStderr(), crashRecords)

	logger.Info("playback finished",
		"frames_presented", stats.FramesPresented,
		"frames_dropped", stats.FramesDropped,
		"mean_frame_ms", stats.MeanFrameMillis,
		"max_frame_ms", stats.MaxFrameMillis,
	)

	lastExitCode = player.ExitCode(err)

	return err
}

// drainCrashRecords prints any crash record the player's panic guard
// published during the run, without blocking if none arrived: Run has
// already returned by the time this is called, so the subscription's
// buffered channel holds at most the records a panic recovery wrote before
// re-panicking.
func drainCrashRecords(w io.Writer, sub *vtlog.Subscription) {
	sub.Close()

	for {
		select {
		case record, ok := <-sub.C():
			if !ok {
				return
			}

			_, _ = w.Write(record)
		default:
			return
		}
	}
}
