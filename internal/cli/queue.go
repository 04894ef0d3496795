package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fuelcoach-go/internal/config"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/offline"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// FlushResult reports one replay pass over the offline queue.
type FlushResult struct {
	Replayed  int    `json:"replayed"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

func (r FlushResult) String() string {
	s := fmt.Sprintf("replayed %d, %d pending", r.Replayed, r.Remaining)
	if r.Error != "" {
		s += " (stopped: " + r.Error + ")"
	}
	return s
}

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Replay queued offline mutations",
		Long: `Replay queued mutations oldest first through the normal request pipeline.
Replay stops at the first failure; the failed entry and everything after it
stay queued for the next flush.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				res, err := flushOnce(ctx, rt)
				if err != nil {
					f.VerboseLog("flush stopped: %v", err)
				}
				return f.Success(res)
			})
		},
	}
}

// flushOnce replays the queue and reports what is left. A replay failure is
// part of the result, not a command error: the entry simply stays queued.
func flushOnce(ctx context.Context, rt *Runtime) (FlushResult, error) {
	n, ferr := rt.Client.Flush(ctx)
	remaining, err := rt.Queue.Len(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to read offline queue length")
	}
	res := FlushResult{Replayed: n, Remaining: remaining}
	if ferr != nil {
		res.Error = ferr.Error()
	}
	return res, ferr
}

type queueFlags struct {
	dropHead bool
	clear    bool
}

// PendingList renders queued mutations.
type PendingList []offline.Mutation

func (l PendingList) String() string {
	if len(l) == 0 {
		return "queue is empty"
	}
	var b strings.Builder
	for i, m := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %-6s %s  %s", m.ID, m.Method, m.Path, m.CreatedAt.Format(time.RFC3339))
	}
	return b.String()
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &queueFlags{}
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List, drop or clear queued offline mutations",
		Long: `List mutations waiting to be replayed.

A mutation the server keeps rejecting blocks everything behind it. Use
--drop-head to discard the oldest entry, or --clear to discard all of them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.dropHead && flags.clear {
				return newFormatter(rootOpts, cmd).Fail(NewExitError(ExitCommandError, "--drop-head and --clear are mutually exclusive"))
			}
			return runQueue(rootOpts, flags, cmd)
		},
	}
	cmd.Flags().BoolVar(&flags.dropHead, "drop-head", false, "discard the oldest queued mutation")
	cmd.Flags().BoolVar(&flags.clear, "clear", false, "discard every queued mutation")
	return cmd
}

func runQueue(opts *RootOptions, flags *queueFlags, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	return withRuntime(cmd, opts, f, func(ctx context.Context, rt *Runtime) error {
		switch {
		case flags.dropHead:
			m, ok, err := rt.Queue.DropHead(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return f.Success("queue is empty")
			}
			return f.Success(PendingList{m})
		case flags.clear:
			if err := rt.Queue.Clear(ctx); err != nil {
				return err
			}
			return f.Success("queue cleared")
		}
		pending, err := rt.Queue.Pending(ctx)
		if err != nil {
			return err
		}
		if pending == nil {
			pending = []offline.Mutation{}
		}
		return f.Success(PendingList(pending))
	})
}

type syncFlags struct {
	watch    bool
	interval time.Duration
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Flush the offline queue, optionally on an interval",
		Long: `Flush the offline queue once. With --watch, keep running and flush every
--interval until interrupted; the config file is watched and queue capacity,
replay pacing and log settings are applied without a restart.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, flags, cmd)
		},
	}
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "keep flushing until interrupted")
	cmd.Flags().DurationVar(&flags.interval, "interval", 30*time.Second, "time between flushes in watch mode")
	return cmd
}

func runSync(opts *RootOptions, flags *syncFlags, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	if flags.watch && flags.interval <= 0 {
		return f.Fail(NewExitError(ExitCommandError, "--interval must be positive"))
	}
	return withRuntime(cmd, opts, f, func(ctx context.Context, rt *Runtime) error {
		if !flags.watch {
			res, _ := flushOnce(ctx, rt)
			return f.Success(res)
		}

		unsubscribe := rt.Hub.Subscribe(events.TopicAll, func(_ context.Context, ev events.Event) {
			f.VerboseLog("%s %s: %+v", ev.Timestamp.Format(time.TimeOnly), ev.Topic, ev.Payload)
		})
		defer unsubscribe()
		rt.Manager.OnReload(func(cfg *config.Config) { rt.applyReload(cfg) })
		rt.Manager.StartWatching()

		ticker := time.NewTicker(flags.interval)
		defer ticker.Stop()
		for {
			res, err := flushOnce(ctx, rt)
			if err != nil {
				f.VerboseLog("flush stopped: %v", err)
			}
			if res.Replayed > 0 || res.Remaining > 0 {
				if err := f.Success(res); err != nil {
					return err
				}
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
}
