package cli

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/explorer"
	"github.com/matzehuels/netlens/pkg/notify"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

type exploreOpts struct {
	watch    bool
	noDetect bool
}

func (c *CLI) exploreCommand() *cobra.Command {
	var opts exploreOpts

	cmd := &cobra.Command{
		Use:   "explore FILE",
		Short: "Explore a graph interactively in the terminal",
		Long: `Open an interactive view of a graph.

Filters are toggled with single keys and their notifications appear at the
bottom of the screen. Communities are detected when the view opens unless
--no-detect is given; press d to detect again.

With --watch the file is reloaded whenever it changes on disk.`,
		Example: `  netlens explore chat.json
  netlens explore research.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], opts, cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the file when it changes")
	cmd.Flags().BoolVar(&opts.noDetect, "no-detect", false, "skip community detection on open")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, path string, opts exploreOpts, stdin io.Reader) error {
	if opts.watch && path == stdinPath {
		return errors.New(errors.ErrCodeInvalidInput, "--watch needs a file, not stdin")
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	det, ch, err := c.newDetector(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	notes := &notify.Recorder{}
	layout := &tuiLayout{}
	open := exploreOpener(path, stdin, det, notes, cfg.Customize, !opts.noDetect)

	dctx, cancel := detectContext(ctx, cfg)
	exp, err := open(dctx)
	cancel()
	if err != nil {
		return err
	}

	ecfg := exploreConfig{path: path, timeout: cfg.API.Timeout.Duration}
	if opts.watch {
		ecfg.reopen = open
	}
	p := tea.NewProgram(newExploreModel(ctx, exp, notes, layout, ecfg), tea.WithAltScreen(), tea.WithContext(ctx))
	layout.setSend(p.Send)

	if opts.watch {
		stop, err := watchFile(path, func(msg tea.Msg) { p.Send(msg) }, c.Logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// exploreOpener returns a function that reads path and opens it in a new
// explorer. The TUI owns the terminal, so the explorer logs nowhere and
// reports through notes.
func exploreOpener(path string, stdin io.Reader, det community.Detector, notes *notify.Recorder, settings customize.Settings, autoDetect bool) func(context.Context) (*explorer.Explorer, error) {
	return func(ctx context.Context) (*explorer.Explorer, error) {
		rec, err := readInput(path, stdin)
		if err != nil {
			return nil, err
		}
		s := settings.Clone()
		return explorer.Open(ctx, rec, explorer.Options{
			Detector:   det,
			Notifier:   notes,
			Logger:     log.New(io.Discard),
			AutoDetect: autoDetect,
			Settings:   &s,
		})
	}
}

// watchFile calls send with a fileChangedMsg whenever path is written or
// recreated. The directory is watched so editors that replace the file on
// save keep triggering. The returned function stops watching.
func watchFile(path string, send func(tea.Msg), logger *log.Logger) (func() error, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "watch %s", path)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "watch %s", path)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	fire := func() { send(fileChangedMsg{path: path}) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, fire)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Debug("watch error", "path", path, "err", err)
			}
		}
	}()

	return func() error {
		err := w.Close()
		<-done
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		return err
	}, nil
}
