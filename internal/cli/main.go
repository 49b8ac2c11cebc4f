package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/forPelevin/lecturecut/internal/config"
	"github.com/forPelevin/lecturecut/internal/ports"
	"github.com/forPelevin/lecturecut/internal/ports/adapters/native"
	"github.com/forPelevin/lecturecut/internal/progress"
	"github.com/forPelevin/lecturecut/internal/report"
)

func Main() {
	rep := report.New()

	env, err := config.Load()
	if err != nil {
		rep.Fatal(err.Error())
		return
	}
	log, err := env.Logger()
	if err != nil {
		rep.Fatal(err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go interruptOnSignal(sigs, func() { signal.Stop(sigs) }, cancel, rep.Warn)

	app := &App{
		Env:           env,
		Log:           log,
		Report:        rep,
		LoadGenerator: loadGenerator,
		LoadRenderer:  loadRenderer,
	}
	if !env.NoProgress && isatty.IsTerminal(os.Stdout.Fd()) {
		app.Display = progress.NewBars(os.Stdout)
	}

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		rep.Fatal(errorMessage(err))
	}
}

// interruptOnSignal cancels the run on the first signal and hands later
// signals back to the runtime, so a second interrupt ends the process even
// while a module call is in flight.
func interruptOnSignal(sigs <-chan os.Signal, release func(), cancel context.CancelFunc, warn func(string)) {
	if _, ok := <-sigs; !ok {
		return
	}
	release()
	warn("Interrupted. Stopping after the current step, press Ctrl-C again to quit now.")
	cancel()
}

func errorMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Interrupted."
	}
	return err.Error()
}

func loadGenerator(opts native.Options) (ports.Generator, error) {
	g, err := native.LoadGenerator(opts)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func loadRenderer(opts native.Options) (ports.Renderer, error) {
	r, err := native.LoadRenderer(opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}
