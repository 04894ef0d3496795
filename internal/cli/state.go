package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"fuelcoach-go/internal/storage"
	"github.com/spf13/cobra"
)

// NewStateCommand creates the state command, which moves the local client
// state (credentials, preferences, offline queue) between storage backends.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Export or import local client state",
		Long: `Export or import everything the client persists: the token pair,
preferences and the offline queue. The export contains live credentials;
treat the file like a password.`,
	}
	cmd.AddCommand(newStateExportCommand(rootOpts))
	cmd.AddCommand(newStateImportCommand(rootOpts))
	return cmd
}

func newStateExportCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write local state as JSON",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				snapshot, err := exportState(ctx, rt.Backend)
				if err != nil {
					return err
				}
				if path == "" {
					return writeSnapshot(cmd.OutOrStdout(), snapshot)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
					return fmt.Errorf("create export directory: %w", err)
				}
				file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
				if err != nil {
					return fmt.Errorf("open export file: %w", err)
				}
				defer file.Close()
				if err := writeSnapshot(file, snapshot); err != nil {
					return err
				}
				return f.Success(fmt.Sprintf("exported %d keys to %s", len(snapshot), path))
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "o", "", "output file (stdout when empty)")
	return cmd
}

func newStateImportCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "import",
		Short:         "Load local state from a JSON export",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			var r io.Reader = cmd.InOrStdin()
			if path != "" {
				file, err := os.Open(path)
				if err != nil {
					return f.Fail(WrapExitError(ExitCommandError, "open import file", err))
				}
				defer file.Close()
				r = file
			}
			var snapshot map[string]json.RawMessage
			if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "read import json", err))
			}
			return withRuntime(cmd, rootOpts, f, func(ctx context.Context, rt *Runtime) error {
				if err := importState(ctx, rt.Backend, snapshot); err != nil {
					return err
				}
				return f.Success(fmt.Sprintf("imported %d keys", len(snapshot)))
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "i", "", "input file (stdin when empty)")
	return cmd
}

// exportState reads every key. All values the client writes are JSON.
func exportState(ctx context.Context, backend storage.Backend) (map[string]json.RawMessage, error) {
	keys, err := backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	sort.Strings(keys)
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		v, err := backend.Get(ctx, k)
		if storage.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("value of %s is not JSON", k)
		}
		out[k] = v
	}
	return out, nil
}

func importState(ctx context.Context, backend storage.Backend, snapshot map[string]json.RawMessage) error {
	for k, v := range snapshot {
		if err := backend.Set(ctx, k, v); err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
	}
	return nil
}

func writeSnapshot(w io.Writer, snapshot map[string]json.RawMessage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("write export json: %w", err)
	}
	return nil
}
