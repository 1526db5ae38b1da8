package commands

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/numeval/numeval/pkg/parser"
)

func newWatchCommand() *cobra.Command {
	var (
		digits int
		listen string
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-evaluate an expression file whenever it changes",
		Long: `Watch a file of expressions (one per line, # starts a comment) and
re-evaluate it on every change. With a listen address, Prometheus
metrics for the accumulated evaluations are served on /metrics.`,
		Example: `  numeval watch scratch.expr --digits 30
  numeval watch scratch.expr --listen :9180`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Clean(args[0])

			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close(cmd.Context())
			log := eng.Logger()

			addr := listen
			if addr == "" {
				addr = eng.Config().Metrics.Listen
			}
			if addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", eng.MetricsHandler())
				srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("metrics endpoint failed")
					}
				}()
				defer srv.Close()
				log.Info().Str("addr", addr).Msg("serving /metrics")
			}

			evaluate := func() {
				f, err := os.Open(path)
				if err != nil {
					log.Error().Err(err).Msg("cannot read watched file")
					return
				}
				defer f.Close()
				sc := bufio.NewScanner(f)
				lineNo := 0
				for sc.Scan() {
					lineNo++
					line := strings.TrimSpace(sc.Text())
					if line == "" || strings.HasPrefix(line, "#") {
						continue
					}
					ex, err := parser.Parse(line)
					if err != nil {
						fmt.Printf("%s:%d: %v\n", path, lineNo, err)
						continue
					}
					res, err := eng.N(cmd.Context(), ex, digits, eng.Options())
					if err != nil {
						fmt.Printf("%s:%d: %v\n", path, lineNo, err)
						continue
					}
					d := res.CertifiedDigits
					if d < 1 {
						d = 1
					}
					if res.Value != nil {
						fmt.Printf("%s = %s\n", line, res.Value.Text(d))
					} else if res.Partial != nil {
						fmt.Printf("%s = %s\n", line, res.Partial)
					}
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			// Watch the directory: editors typically replace the file,
			// which drops a watch on the file itself.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}

			evaluate()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(ev.Name) != path {
						continue
					}
					if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
						evaluate()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("watch error")
				}
			}
		},
	}

	cmd.Flags().IntVarP(&digits, "digits", "d", 0, "requested decimal digits (default from config)")
	cmd.Flags().StringVar(&listen, "listen", "", "serve Prometheus /metrics on this address")

	return cmd
}
