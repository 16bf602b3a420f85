// Command streamlive is the scriptable entry point for the live HLS
// download core. Built with spf13/cobra + spf13/viper, the same stack
// jmylchreest-tvarr and itsmenewbie03-greg use for their own CLIs, rather
// than extending the teacher's hand-rolled flag.FlagSet parser to a
// subcommand tree it was never shaped for.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alvarorichard/streamlive/internal/netplay"
	"github.com/alvarorichard/streamlive/internal/resolver"
	"github.com/alvarorichard/streamlive/internal/resolver/afreecalike"
	"github.com/alvarorichard/streamlive/internal/resolver/twitchlike"
	"github.com/alvarorichard/streamlive/internal/stream"
	"github.com/alvarorichard/streamlive/internal/util"
)

var (
	outputPath string
	maxRetries int
	netplayOn  bool
)

func newRegistry() *resolver.Registry {
	reg := resolver.NewRegistry()
	reg.Register(afreecalike.New())
	reg.Register(twitchlike.New())
	return reg
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "streamlive",
		Short: "Download a live stream from a supported site",
	}

	root.PersistentFlags().BoolVar(&util.IsDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().IntVar(&maxRetries, "max-retries", 12, "parsed but not applied: downloads always use the default budget of 12 no-progress watcher iterations")
	viper.BindPFlag("max-retries", root.PersistentFlags().Lookup("max-retries"))

	root.AddCommand(downloadCmd(), probeCmd(), resolveCmd())
	return root
}

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Resolve a URL and download the live stream to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			util.InitLogger()
			rawURL := args[0]

			reg := newRegistry()
			handle, err := reg.Resolve(rawURL)
			if err != nil {
				return err
			}

			if handle.Status() == resolver.StatusOffline {
				return fmt.Errorf("%s is not currently live", handle.Author())
			}

			client := util.GetSharedClient()
			es, err := handle.BuildStream(client)
			if err != nil {
				return err
			}

			path := outputPath
			if path == "" {
				path = sanitizeOutputPath(handle.DefaultName())
			}

			util.Info("streamlive: starting download", "title", handle.Title(), "path", path, "run", uuid.NewString())

			stopPresence := reportLiveDownload(handle.Title())
			defer stopPresence()

			if netplayOn {
				return runWithNetplay(es, path)
			}
			return writeToFile(es, path)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: derived from stream metadata)")
	cmd.Flags().BoolVar(&netplayOn, "netplay", false, "pipe the download to mpv over a local TCP bridge instead of a file")
	return cmd
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Report whether the URL's stream is currently live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			util.InitLogger()
			reg := newRegistry()
			handle, err := reg.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Println(handle.Status())
			return nil
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Print resolved stream metadata without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			util.InitLogger()
			reg := newRegistry()
			handle, err := reg.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("title: %s\nauthor: %s\nstatus: %s\ndefault name: %s\n",
				handle.Title(), handle.Author(), handle.Status(), handle.DefaultName())
			return nil
		},
	}
}

func writeToFile(es *stream.EventStream, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	var errored bool
	for {
		ev, ok := es.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case stream.EventBytes:
			if _, err := f.Write(ev.Bytes); err != nil {
				es.Close()
				return fmt.Errorf("failed to write output file: %w", err)
			}
		case stream.EventError:
			errored = true
			util.Warn("streamlive: segment error", "err", ev.Err)
		case stream.EventEnd:
			if errored {
				util.Warn("streamlive: download finished with one or more segment errors")
			} else {
				util.Info("streamlive: download finished")
			}
			return nil
		}
	}
	return nil
}

func runWithNetplay(es *stream.EventStream, path string) error {
	bridge, err := netplay.Listen("127.0.0.1:0")
	if err != nil {
		return err
	}
	defer bridge.Close()

	player, err := netplay.SpawnMPV(bridge.Addr())
	if err != nil {
		return err
	}

	go func() {
		if err := bridge.Pipe(es); err != nil {
			util.Warn("streamlive: netplay bridge ended with error", "err", err)
		}
	}()

	return player.Wait()
}

// sanitizeOutputPath guards against directory traversal in a
// server-derived default filename, the same check the teacher's HLS
// downloader applies before writing to disk.
func sanitizeOutputPath(name string) string {
	clean := filepath.Clean(strings.ReplaceAll(name, "..", "_"))
	if filepath.IsAbs(clean) {
		clean = filepath.Base(clean)
	}
	return clean
}

func main() {
	start := time.Now()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, util.ErrorHandler(err))
		os.Exit(1)
	}
	util.Debug("streamlive: run finished", "elapsed", time.Since(start))
}
