package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/hostbridge"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		method  string
		headers []string
		data    string
		include bool
	)

	fetchCmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Sends an HTTP request through the callback bridge",
		Long: `Sends an HTTP request and prints the response body. Text bodies are
printed as is, binary bodies are written raw to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := hostbridge.HTTPRequest{
				URL:     args[0],
				Method:  method,
				Content: data,
			}
			hs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			req.Headers = hs

			out := cmd.OutOrStdout()
			return a.runOnHomeThread(cmd.Context(), func(ctx context.Context, b *hostbridge.Bridge, done func(error)) error {
				_, err := b.SendHTTPRequest(ctx, req, func(resp hostbridge.HTTPResponse, err error) {
					if err != nil {
						done(err)
						return
					}
					if include {
						writeHead(out, resp)
					}
					if resp.IsText() {
						_, err = io.WriteString(out, resp.Content)
					} else {
						_, err = out.Write(resp.BinaryContent)
					}
					if err == nil && resp.Status >= 400 {
						err = fmt.Errorf("%d %s", resp.Status, resp.Error)
					}
					done(err)
				})
				return err
			})
		},
	}
	fetchCmd.Flags().StringVarP(&method, "request", "X", "GET", "HTTP method to use.")
	fetchCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as 'Name: value'. May be repeated.")
	fetchCmd.Flags().StringVarP(&data, "data", "d", "", "Request body.")
	fetchCmd.Flags().BoolVarP(&include, "include", "i", false, "Print the status and response headers before the body.")

	return fetchCmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var headers []string

	downloadCmd := &cobra.Command{
		Use:   "download URL TARGET",
		Short: "Downloads a file through the callback bridge",
		Long: `Downloads URL to TARGET and prints the absolute path of the result. A
relative TARGET is resolved against the configured files directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			req := hostbridge.HTTPRequest{URL: args[0], Headers: hs}

			out := cmd.OutOrStdout()
			return a.runOnHomeThread(cmd.Context(), func(ctx context.Context, b *hostbridge.Bridge, done func(error)) error {
				_, err := b.Download(ctx, req, args[1], func(path string, err error) {
					if err == nil {
						fmt.Fprintln(out, path)
					}
					done(err)
				})
				return err
			})
		},
	}
	downloadCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as 'Name: value'. May be repeated.")

	return downloadCmd
}

// runOnHomeThread creates a bridge that delivers on the calling goroutine,
// starts one operation and runs the home thread until it completes or the
// command is interrupted.
func (a *app) runOnHomeThread(ctx context.Context, start func(ctx context.Context, b *hostbridge.Bridge, done func(error)) error) error {
	cfg := a.cfg
	cfg.HTTP.DeliverOnHomeThread = true

	b, err := hostbridge.New(cfg, hostbridge.WithLogger(a.log.Logger))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Shutdown(shutdownCtx); err != nil {
			a.log.Error(err, "bridge shutdown did not complete")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	done := func(err error) {
		select {
		case result <- err:
		default:
		}
		cancel()
	}

	go func() {
		select {
		case <-b.HomeThreadReady():
		case <-ctx.Done():
			return
		}
		if err := start(ctx, b, done); err != nil {
			done(err)
		}
	}()

	if err := b.RunHomeThread(ctx); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	default:
		return errors.New("interrupted")
	}
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

func writeHead(w io.Writer, resp hostbridge.HTTPResponse) {
	fmt.Fprintf(w, "%d", resp.Status)
	if resp.Error != "" {
		fmt.Fprintf(w, " %s", resp.Error)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, resp.Headers[name])
	}
	fmt.Fprintln(w)
}
