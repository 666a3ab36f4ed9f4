package main

import (
	"fmt"
	"strings"

	"github.com/dhamidi/perlsp/format"
	"github.com/dhamidi/perlsp/perl/parser"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var includePositions bool
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a Perl file and dump its syntax tree",
		Long: `Parse a Perl file and dump its syntax tree.

Syntax errors are reported on stderr as file:line:col: message, and the
command fails when there are any. The tree is printed regardless. Use "-"
to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			data, err := readSource(filename)
			if err != nil {
				return fmt.Errorf("read perl file: %w", err)
			}

			encoder, err := format.NewEncoder(outputFormat, cmd.OutOrStdout(), includePositions)
			if err != nil {
				return err
			}

			opts := []parser.Option{parser.WithContext(cmd.Context())}
			if maxDepth > 0 {
				opts = append(opts, parser.WithMaxDepth(maxDepth))
			}
			tree := parser.Parse(data, opts...)
			if tree.Canceled {
				return fmt.Errorf("parse %s: canceled", filename)
			}

			if err := encoder.Encode(tree); err != nil {
				return fmt.Errorf("encode: %w", err)
			}

			return reportErrors(cmd, filename, tree)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "sexpr", "output format ("+strings.Join(format.Names, ", ")+")")
	cmd.Flags().BoolVar(&includePositions, "positions", false, "include node ranges in tree output")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum nesting depth (0 for the default)")

	return cmd
}

func reportErrors(cmd *cobra.Command, filename string, tree *parser.Tree) error {
	if !tree.HasErrors() {
		return nil
	}
	for _, err := range tree.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s:%s\n", filename, err)
	}
	if len(tree.Errors) == 1 {
		return fmt.Errorf("%s: 1 syntax error", filename)
	}
	return fmt.Errorf("%s: %d syntax errors", filename, len(tree.Errors))
}
