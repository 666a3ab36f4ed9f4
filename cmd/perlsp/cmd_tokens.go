package main

import (
	"fmt"

	"github.com/dhamidi/perlsp/format"
	"github.com/dhamidi/perlsp/perl/lexer"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	var trivia bool

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream of a Perl file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readSource(args[0])
			if err != nil {
				return fmt.Errorf("read perl file: %w", err)
			}

			tokens := lexer.Tokenize(data)
			if !trivia {
				kept := tokens[:0]
				for _, tok := range tokens {
					if !tok.Kind.IsTrivia() {
						kept = append(kept, tok)
					}
				}
				tokens = kept
			}

			if err := format.NewTokenEncoder(cmd.OutOrStdout()).Encode(tokens); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&trivia, "trivia", true, "include whitespace, comments and POD")

	return cmd
}
