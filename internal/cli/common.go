package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// addRootFlag registers --root on cmd.
func addRootFlag(cmd *cobra.Command, root *string) {
	cmd.Flags().StringVar(root, "root", "", "project root path (default: current directory)")
}

// resolveRoot returns root as an absolute path, or the working directory
// when root is empty.
func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to determine current directory", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid root", err)
	}
	return abs, nil
}

// parseEnv parses KEY=VALUE pairs.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid env %q: expected KEY=VALUE", p))
		}
		env[k] = v
	}
	return env, nil
}

// failure wraps err as an ExitFailure unless it already carries a code.
func failure(message string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitFailure, message, err)
}

// namesOrAll accepts either one or more names or the --all flag, not both.
func namesOrAll(all *bool, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch {
		case *all && len(args) > 0:
			return NewExitError(ExitCommandError, "--all cannot be combined with a "+what)
		case !*all && len(args) == 0:
			return NewExitError(ExitCommandError, "requires a "+what+" or --all")
		}
		return nil
	}
}
