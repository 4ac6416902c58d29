package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/repository"
)

// NewScriptCommand creates the script command group.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage per-project scripts",
	}
	cmd.AddCommand(newScriptListCommand(rootOpts))
	cmd.AddCommand(newScriptAddCommand(rootOpts))
	cmd.AddCommand(newScriptUpdateCommand(rootOpts))
	cmd.AddCommand(newScriptRemoveCommand(rootOpts))
	cmd.AddCommand(newScriptImportCommand(rootOpts))
	return cmd
}

// ScriptGroup is the scripts of one project root, as listed.
type ScriptGroup struct {
	Root    string          `json:"root" yaml:"root"`
	Scripts []record.Script `json:"scripts" yaml:"scripts"`
}

func newScriptListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		all  bool
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List scripts for a project root",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var roots []string
			if all {
				if roots, err = app.Scripts.Roots(ctx); err != nil {
					return failure("failed to list roots", err)
				}
			} else {
				r, err := resolveRoot(root)
				if err != nil {
					return err
				}
				roots = []string{r}
			}

			groups := []ScriptGroup{}
			for _, r := range roots {
				items, err := app.Scripts.List(ctx, r)
				if err != nil {
					return failure("failed to list scripts", err)
				}
				groups = append(groups, ScriptGroup{Root: r, Scripts: items})
			}
			return rootOpts.Formatter(cmd).Render(groups, func(w io.Writer) {
				writeScriptGroups(w, groups)
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&all, "all", false, "list scripts of every project root")
	return cmd
}

func newScriptAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		s    record.Script
		env  []string
	)
	cmd := &cobra.Command{
		Use:   "add <name> <command>",
		Short: "Add a script to a project root",
		Long: `Add a script to a project root.

A root cannot hold two scripts with the same command.

Example:
  devstash script add test "go test ./..." --root ~/src/api
  devstash script add serve "npm start" --env PORT=3000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			if s.Env, err = parseEnv(env); err != nil {
				return err
			}
			s.Name, s.Command = args[0], args[1]

			created, err := app.Scripts.Create(cmd.Context(), r, s)
			if err != nil {
				return failure("failed to add script", err)
			}
			return rootOpts.Formatter(cmd).Render(created, func(w io.Writer) {
				fmt.Fprintf(w, "Added script %q to %s\n", created.Name, r)
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().StringVar(&s.Description, "description", "", "description")
	cmd.Flags().StringVar(&s.Cwd, "cwd", "", "working directory, relative to the root")
	cmd.Flags().StringArrayVar(&env, "env", nil, "environment variable KEY=VALUE (repeatable)")
	return cmd
}

func newScriptUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root    string
		rename  string
		command string
		desc    string
		cwd     string
		env     []string
	)
	cmd := &cobra.Command{
		Use:           "update <name>",
		Short:         "Change a script",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cur, err := app.Scripts.Get(ctx, r, args[0])
			if err != nil {
				return failure("failed to update script", err)
			}
			if rename != "" {
				cur.Name = rename
			}
			if command != "" {
				cur.Command = command
			}
			if cmd.Flags().Changed("description") {
				cur.Description = desc
			}
			if cmd.Flags().Changed("cwd") {
				cur.Cwd = cwd
			}
			if cmd.Flags().Changed("env") {
				if cur.Env, err = parseEnv(env); err != nil {
					return err
				}
			}

			updated, err := app.Scripts.Update(ctx, r, args[0], cur)
			if err != nil {
				return failure("failed to update script", err)
			}
			return rootOpts.Formatter(cmd).Render(updated, func(w io.Writer) {
				fmt.Fprintf(w, "Updated script %q in %s\n", updated.Name, r)
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().StringVar(&rename, "name", "", "new name")
	cmd.Flags().StringVar(&command, "command", "", "new command")
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	cmd.Flags().StringVar(&cwd, "cwd", "", "new working directory")
	cmd.Flags().StringArrayVar(&env, "env", nil, "replace environment with KEY=VALUE pairs (repeatable)")
	return cmd
}

func newScriptRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "rm <name>... | rm --all",
		Short: "Remove scripts from a project root",
		Long: `Remove scripts from a project root by name, or every script of the
root with --all.

Example:
  devstash script rm build test
  devstash script rm --all --root ~/src/old-project`,
		Args:          namesOrAll(&all, "script name"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			if all {
				if err := app.Scripts.DeleteRoot(cmd.Context(), r); err != nil {
					return failure("failed to remove scripts", err)
				}
				return rootOpts.Formatter(cmd).Render(map[string]any{"root": r, "removed": "all"}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed all scripts from %s\n", r)
				})
			}
			refs := make([]repository.ScriptRef, len(args))
			for i, name := range args {
				refs[i] = repository.ScriptRef{Root: r, Name: name}
			}
			if _, err := app.Scripts.DeleteScripts(cmd.Context(), refs); err != nil {
				return failure("failed to remove scripts", err)
			}
			return rootOpts.Formatter(cmd).Render(map[string]any{"root": r, "removed": args}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %s from %s\n", strings.Join(args, ", "), r)
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&all, "all", false, "remove every script of the root")
	return cmd
}

// ScriptImport is one entry of a script import file.
type ScriptImport struct {
	Root        string            `json:"root" yaml:"root"`
	Name        string            `json:"name" yaml:"name"`
	Command     string            `json:"command" yaml:"command"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Cwd         string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// ImportResult reports which roots of an import were written.
type ImportResult struct {
	Applied []string          `json:"applied" yaml:"applied"`
	Failed  map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

func newScriptImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create scripts from a JSON or YAML file",
		Long: `Create scripts from a JSON or YAML list of {root, name, command, ...}.

Scripts are grouped by root. A root whose scripts all succeed is written
even if another root's group fails; a group with any invalid or duplicate
script is not written at all.

Example:
  devstash script import scripts.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			entries, err := readScriptImport(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read import file", err)
			}

			base := filepath.Dir(args[0])
			inputs := make([]repository.ScriptInput, len(entries))
			for i, e := range entries {
				root := e.Root
				if root != "" && !filepath.IsAbs(root) {
					root = filepath.Join(base, root)
				}
				inputs[i] = repository.ScriptInput{Root: root, Script: record.Script{
					Name:        e.Name,
					Command:     e.Command,
					Description: e.Description,
					Cwd:         e.Cwd,
					Env:         e.Env,
				}}
			}

			res, batchErr := app.Scripts.CreateScripts(cmd.Context(), inputs)
			result := ImportResult{Applied: res.Applied}
			if result.Applied == nil {
				result.Applied = []string{}
			}
			var be *repository.BatchError
			if errors.As(batchErr, &be) {
				result.Failed = make(map[string]string, len(be.Failed))
				for _, g := range be.Failed {
					result.Failed[g.Key] = g.Err.Error()
				}
			} else if batchErr != nil {
				return failure("failed to import scripts", batchErr)
			}

			if err := rootOpts.Formatter(cmd).Render(result, func(w io.Writer) {
				for _, r := range result.Applied {
					fmt.Fprintf(w, "imported %s\n", r)
				}
				failedRoots := make([]string, 0, len(result.Failed))
				for r := range result.Failed {
					failedRoots = append(failedRoots, r)
				}
				slices.Sort(failedRoots)
				for _, r := range failedRoots {
					fmt.Fprintf(w, "FAILED   %s: %s\n", r, result.Failed[r])
				}
			}); err != nil {
				return err
			}
			if batchErr != nil {
				exitErr := WrapExitError(ExitFailure, "some roots were not imported", batchErr)
				exitErr.Quiet = true
				return exitErr
			}
			return nil
		},
	}
	return cmd
}

func readScriptImport(path string) ([]ScriptImport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []ScriptImport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

func writeScriptGroups(w io.Writer, groups []ScriptGroup) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", g.Root)
		if len(g.Scripts) == 0 {
			fmt.Fprintln(w, "  (no scripts)")
			continue
		}
		for _, s := range g.Scripts {
			fmt.Fprintf(w, "  %-20s %s\n", s.Name, s.Command)
			if s.Description != "" {
				fmt.Fprintf(w, "  %-20s # %s\n", "", s.Description)
			}
		}
	}
}
