package commands

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/recognize"
)

// candidateNames maps the spellings accepted by --candidates.
var candidateNames = map[string]expr.ConstName{
	"pi":           expr.ConstPi,
	"e":            expr.ConstE,
	"euler_gamma":  expr.ConstEulerGamma,
	"catalan":      expr.ConstCatalan,
	"ln2":          expr.ConstLn2,
	"golden_ratio": expr.ConstGoldenRatio,
}

func newRecognizeCommand() *cobra.Command {
	var candidates []string

	cmd := &cobra.Command{
		Use:   "recognize <decimal value>",
		Short: "Search for the closed form behind a numeric value",
		Long: `Try to express a decimal value exactly: as a rational, as an integer
linear combination of candidate constants (found by PSLQ), or as the
square root of either. Matches are re-verified numerically; when nothing
both fits and verifies, the answer is "none".`,
		Example: `  numeval recognize 0.1
  numeval recognize 6.2831853071795864769 --candidates pi
  numeval recognize 0.6931471805599453 --candidates ln2,pi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := strings.TrimSpace(args[0])
			// Every supplied digit is treated as exact.
			prec := uint(float64(len(src))*3.33) + 32
			f, _, err := big.ParseFloat(src, 10, prec, big.ToNearestEven)
			if err != nil {
				return fmt.Errorf("not a decimal value: %q", src)
			}

			var cands []recognize.Candidate
			for _, spec := range candidates {
				for _, name := range strings.Split(spec, ",") {
					name = strings.TrimSpace(name)
					if name == "" {
						continue
					}
					c, ok := candidateNames[name]
					if !ok {
						return fmt.Errorf("unknown candidate constant %q", name)
					}
					cands = append(cands, recognize.Candidate{Name: name, Expr: expr.Constant{Name: c}})
				}
			}

			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close(cmd.Context())

			got, err := eng.Recognize(cmd.Context(), ball.FromFloat(f), cands, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				payload := map[string]any{"input": src, "match": nil}
				if got != nil {
					payload["match"] = got.String()
				}
				return json.NewEncoder(os.Stdout).Encode(payload)
			}
			if got == nil {
				fmt.Println("none")
				return nil
			}
			fmt.Println(got.String())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&candidates, "candidates", nil,
		"comma-separated candidate constants (pi, e, euler_gamma, catalan, ln2, golden_ratio)")

	return cmd
}
