package commands

import (
	"github.com/spf13/cobra"

	"github.com/numeval/numeval/pkg/parser"
)

func newEvalCommand() *cobra.Command {
	var (
		digits   int
		maxPrec  uint
		chop     bool
		strict   bool
		bindings []string
	)

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression to a certified number of digits",
		Example: `  # 50 certified digits of a closed form
  numeval eval "exp(pi*sqrt(163))" --digits 50

  # chop the numerically-zero imaginary part
  numeval eval "exp(I*pi) + 1" --chop

  # fail instead of degrading when the ceiling is hit
  numeval eval "sin(10**100)" --digits 40 --strict --maxprec 512

  # free symbols via bindings
  numeval eval "(x**2) + y" --bind x=1/3 --bind y=pi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := parser.Parse(args[0])
			if err != nil {
				return err
			}
			binds, err := parseBindings(bindings)
			if err != nil {
				return err
			}

			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close(cmd.Context())

			opts := eng.Options()
			opts.Bindings = binds
			if chop {
				opts.Chop = true
			}
			if strict {
				opts.Strict = true
			}
			if maxPrec > 0 {
				opts.MaxPrec = maxPrec
			}

			res, err := eng.N(cmd.Context(), ex, digits, opts)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().IntVarP(&digits, "digits", "d", 0, "requested decimal digits (default from config)")
	cmd.Flags().UintVar(&maxPrec, "maxprec", 0, "working precision ceiling in bits")
	cmd.Flags().BoolVar(&chop, "chop", false, "round plausible exact zeros to zero")
	cmd.Flags().BoolVar(&strict, "strict", false, "error out instead of returning a degraded result")
	cmd.Flags().StringArrayVar(&bindings, "bind", nil, "bind a free symbol, name=expr (repeatable)")

	return cmd
}
