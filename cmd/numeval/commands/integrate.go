package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/parser"
)

func newIntegrateCommand() *cobra.Command {
	var (
		variable string
		from     string
		to       string
		scheme   string
		digits   int
	)

	cmd := &cobra.Command{
		Use:   "integrate <integrand>",
		Short: "Evaluate a definite integral",
		Long: `Evaluate a definite integral with tanh-sinh quadrature. Endpoint
singularities are absorbed by the node clustering; either bound may be
inf or -inf. Integrands that oscillate all the way to infinity need the
explicit oscillatory scheme.`,
		Example: `  # endpoint singularity
  numeval integrate "log(x)" --var x --from 0 --to 1

  # whole real line
  numeval integrate "exp(-(x**2))" --var x --from -inf --to inf --digits 40

  # oscillatory tail
  numeval integrate "sin(x)/(x**2)" --var x --from 1 --to inf --scheme osc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parser.Parse(args[0])
			if err != nil {
				return err
			}
			lo, err := parser.Parse(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			hi, err := parser.Parse(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close(cmd.Context())

			opts := eng.Options()
			if scheme != "" {
				opts.Quad = scheme
			}
			if opts.Quad != evalf.QuadSchemeSmooth && opts.Quad != evalf.QuadSchemeOsc {
				return fmt.Errorf("unknown quadrature scheme %q", opts.Quad)
			}

			node := expr.NewIntegral(body, expr.Symbol{Name: variable}, lo, hi)
			res, err := eng.N(cmd.Context(), node, digits, opts)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().StringVar(&variable, "var", "x", "integration variable")
	cmd.Flags().StringVar(&from, "from", "", "lower bound (expression, inf or -inf)")
	cmd.Flags().StringVar(&to, "to", "", "upper bound (expression, inf or -inf)")
	cmd.Flags().StringVar(&scheme, "scheme", "", "quadrature scheme: smooth or osc")
	cmd.Flags().IntVarP(&digits, "digits", "d", 0, "requested decimal digits (default from config)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
