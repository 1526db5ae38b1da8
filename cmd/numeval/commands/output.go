package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/parser"
)

type resultPayload struct {
	Value           string `json:"value,omitempty"`
	Partial         string `json:"partial,omitempty"`
	Status          string `json:"status"`
	RequestedDigits int    `json:"requested_digits"`
	CertifiedDigits int    `json:"certified_digits"`
	WorkingPrecBits uint   `json:"working_prec_bits"`
	Attempts        int    `json:"attempts"`
	ID              string `json:"id"`
}

func printResult(res evalf.Result) error {
	p := resultPayload{
		Status:          string(res.Status),
		RequestedDigits: res.RequestedDigits,
		CertifiedDigits: res.CertifiedDigits,
		WorkingPrecBits: res.WorkingPrec,
		Attempts:        res.Attempts,
		ID:              res.ID,
	}
	digits := res.CertifiedDigits
	if digits < 1 {
		digits = 1
	}
	if res.Value != nil {
		p.Value = res.Value.Text(digits)
	} else if res.Partial != nil {
		p.Partial = res.Partial.String()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(p)
	}
	if p.Value != "" {
		fmt.Println(p.Value)
	} else {
		fmt.Println(p.Partial)
	}
	if res.Status != evalf.StatusOK {
		fmt.Fprintf(os.Stderr, "status: %s (%d of %d digits certified)\n",
			p.Status, p.CertifiedDigits, p.RequestedDigits)
	}
	return nil
}

// parseBindings turns repeated name=expr flags into a binding map.
func parseBindings(specs []string) (map[string]expr.Expr, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]expr.Expr, len(specs))
	for _, spec := range specs {
		name, src, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("binding %q is not of the form name=expr", spec)
		}
		ex, err := parser.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		out[name] = ex
	}
	return out, nil
}
