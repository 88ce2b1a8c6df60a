package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/fx"

	openslides "github.com/openslides/openslides.go"
	"github.com/openslides/openslides.go/pkg/config"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

func options(cfg *config.Config, a *args, out io.Writer) fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Supply(cfg, a),
		fx.Provide(
			newLogger,
			newSession,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *openslides.Session, l logger.Logger) {
			registerPrinter(lc, s, a.collections, out, l)
		}),
	)
}

// newLogger builds the configured logger. Its hook is the first appended, so
// the log file is closed after everything else has stopped.
func newLogger(lc fx.Lifecycle, cfg *config.Config) (logger.Logger, error) {
	l, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	if c, ok := l.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return c.Close()
			},
		})
	}
	return l, nil
}

func newSession(lc fx.Lifecycle, cfg *config.Config, a *args, l logger.Logger) (*openslides.Session, error) {
	s, err := openslides.New(cfg, openslides.WithLogger(l))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Login(ctx, a.username, a.password); err != nil {
				return errors.New(openslides.Notice(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Logout(ctx)
		},
	})
	return s, nil
}

// registerPrinter prints change events while the app runs. Hooks start in
// order, so the session is logged in by the time OnStart runs, and stop in
// reverse, so the printer is gone before the session logs out.
func registerPrinter(lc fx.Lifecycle, s *openslides.Session, collections []models.Collection, out io.Writer, l logger.Logger) {
	var (
		sub  *store.Subscription
		done = make(chan struct{})
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			st := s.Store()
			fmt.Fprintf(out, "mirrored %d records\n", total(st))

			sub = st.Subscribe(collections...)
			go func() {
				defer close(done)
				for ev := range sub.C {
					fmt.Fprintln(out, formatEvent(ev))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sub.Unsubscribe()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if n := sub.Dropped(); n > 0 {
				l.Warn("printer fell behind", "dropped", n)
			}
			return nil
		},
	})
}

func total(st *store.Store) int {
	n := 0
	for _, c := range st.Collections() {
		n += st.Count(c)
	}
	return n
}

func formatEvent(ev store.ChangeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d", ev.Seq)
	if ev.Cleared {
		b.WriteString(" reloaded")
	}
	for _, k := range ev.Changed {
		fmt.Fprintf(&b, " +%s", k)
	}
	for _, k := range ev.Deleted {
		fmt.Fprintf(&b, " -%s", k)
	}
	return b.String()
}
