// ABOUTME: CLI entrypoint for reasonsketch: one-shot rendering, the terminal host (-tui), and the web host (-server).
// ABOUTME: Analyses come from a stored JSON file (-input) or from reasoning text analyzed by the configured LLM provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/reasonsketch/analysis"
	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/render"
	"github.com/2389-research/reasonsketch/tui"
	"github.com/2389-research/reasonsketch/web"
)

var version = "dev"

type config struct {
	source     string // positional: reasoning text file, or "-" for stdin
	inputFile  string // stored analysis JSON
	outFile    string
	format     string
	mode       string
	configFile string
	provider   string
	model      string
	baseURL    string
	width      float64
	height     float64
	port       int
	serverMode bool
	tuiMode    bool
	watch      bool
	noLegend   bool
	verbose    bool
	version    bool
}

// analyzer is the slice of *analysis.Analyzer the CLI needs.
type analyzer interface {
	Analyze(ctx context.Context, text string, mode reasoning.Mode) (*reasoning.AnalysisResponse, error)
}

// app carries a parsed config and its I/O through one run.
type app struct {
	cfg    config
	layout layout.Config
	mode   reasoning.Mode
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger

	// newAnalyzer builds the provider-backed analyzer on first use.
	newAnalyzer func(ctx context.Context) (analyzer, error)
}

func main() {
	loadDotEnvAuto()

	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if cfg.version {
		fmt.Printf("reasonsketch %s\n", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("reasonsketch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printHelp(stderr, version) }

	fs.StringVar(&cfg.inputFile, "input", "", "Stored analysis JSON to load instead of calling a provider")
	fs.StringVar(&cfg.outFile, "svg", "", "Write the rendered output to this path instead of stdout")
	fs.StringVar(&cfg.format, "format", "svg", "Output format: svg, json, dot, png")
	fs.StringVar(&cfg.mode, "mode", string(reasoning.ModeMap), "Analysis mode: map_reasoning, rewrite_reasoning, teach_thinking")
	fs.StringVar(&cfg.configFile, "config", "", "Layout tuning YAML file")
	fs.StringVar(&cfg.provider, "provider", "", "LLM provider: gemini, openai, anthropic")
	fs.StringVar(&cfg.model, "model", "", "Model name override")
	fs.StringVar(&cfg.baseURL, "base-url", "", "Base URL for OpenAI-compatible endpoints")
	fs.Float64Var(&cfg.width, "width", 800, "Render width in pixels")
	fs.Float64Var(&cfg.height, "height", 600, "Render height in pixels")
	fs.IntVar(&cfg.port, "port", 2389, "Web server port")
	fs.BoolVar(&cfg.serverMode, "server", false, "Start the web host")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Start the terminal host")
	fs.BoolVar(&cfg.watch, "watch", false, "Re-render or reload whenever the input file changes")
	fs.BoolVar(&cfg.noLegend, "no-legend", false, "Omit the legend from rendered output")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&cfg.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 1 {
		return cfg, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	cfg.source = fs.Arg(0)
	cfg.format = strings.ToLower(cfg.format)

	if cfg.serverMode && cfg.tuiMode {
		return cfg, errors.New("-server and -tui are mutually exclusive")
	}
	if cfg.inputFile != "" && cfg.source != "" {
		return cfg, errors.New("-input and a reasoning file are mutually exclusive")
	}
	if cfg.watch && cfg.watchPath() == "" {
		return cfg, errors.New("-watch needs -input or a reasoning file to watch")
	}
	return cfg, nil
}

// watchPath is the file -watch follows, or "" when input comes from stdin.
func (c config) watchPath() string {
	if c.inputFile != "" {
		return c.inputFile
	}
	if c.source != "-" {
		return c.source
	}
	return ""
}

func run(ctx context.Context, cfg config, stdin io.Reader, stdout, stderr io.Writer) int {
	a, err := newApp(cfg, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = a.logger.Sync() }()
	return a.run(ctx)
}

func newApp(cfg config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	mode, err := reasoning.ParseMode(cfg.mode)
	if err != nil {
		return nil, err
	}
	lc := layout.DefaultConfig()
	if cfg.configFile != "" {
		if lc, err = layout.LoadConfig(cfg.configFile); err != nil {
			return nil, err
		}
	}

	logger := newLogger(cfg.verbose, stderr)
	if cfg.tuiMode {
		logger = zap.NewNop()
	}

	a := &app{
		cfg:    cfg,
		layout: lc,
		mode:   mode,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
	a.newAnalyzer = a.providerAnalyzer
	return a, nil
}

func (a *app) run(ctx context.Context) int {
	var err error
	switch {
	case a.cfg.serverMode:
		err = a.runServer(ctx)
	case a.cfg.tuiMode:
		err = a.runTUI(ctx)
	case a.cfg.inputFile == "" && a.cfg.source == "":
		printHelp(a.stdout, version)
		return 0
	default:
		err = a.runRender(ctx)
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		if isAnalysisFailure(err) {
			fmt.Fprintln(a.stderr, analysis.UserMessage)
		}
		return 1
	}
	return 0
}

func isAnalysisFailure(err error) bool {
	var pe *analysis.ProviderError
	var de *analysis.DecodeError
	return errors.As(err, &pe) || errors.As(err, &de) ||
		errors.Is(err, analysis.ErrMissingAPIKey) || errors.Is(err, analysis.ErrEmptyResponse)
}

func (a *app) providerAnalyzer(ctx context.Context) (analyzer, error) {
	client, info, err := analysis.NewClientFromEnv(ctx, a.cfg.provider, a.cfg.model, a.cfg.baseURL)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("provider configured",
		zap.String("component", "cli"),
		zap.String("provider", info.Name),
		zap.String("model", info.Model))
	return analysis.NewAnalyzer(client,
		analysis.WithProvider(info.Name),
		analysis.WithModel(info.Model),
		analysis.WithLogger(a.logger)), nil
}

// load produces the analysis named by the config: a stored JSON file, or
// reasoning text sent through the analyzer.
func (a *app) load(ctx context.Context) (*reasoning.AnalysisResponse, string, error) {
	if a.cfg.inputFile != "" {
		data, err := os.ReadFile(a.cfg.inputFile)
		if err != nil {
			return nil, "", fmt.Errorf("reading analysis: %w", err)
		}
		resp, err := reasoning.DecodeAnalysis(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", a.cfg.inputFile, err)
		}
		return resp, "", nil
	}

	text, err := a.readSource()
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", analysis.ErrBlankInput
	}
	an, err := a.newAnalyzer(ctx)
	if err != nil {
		return nil, text, err
	}
	resp, err := an.Analyze(ctx, text, a.mode)
	return resp, text, err
}

func (a *app) readSource() (string, error) {
	var (
		data []byte
		err  error
	)
	if a.cfg.source == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(a.cfg.source)
	}
	if err != nil {
		return "", fmt.Errorf("reading reasoning text: %w", err)
	}
	return string(data), nil
}

func (a *app) renderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.Width = a.cfg.width
	opts.Height = a.cfg.height
	opts.Layout = a.layout
	opts.Legend = !a.cfg.noLegend
	return opts
}

func (a *app) runRender(ctx context.Context) error {
	if err := a.renderOnce(ctx); err != nil {
		return err
	}
	if !a.cfg.watch {
		return nil
	}
	return watchFile(ctx, a.cfg.watchPath(), watchDebounce, a.logger, func() {
		if err := a.renderOnce(ctx); err != nil {
			a.logger.Error("re-render failed", zap.String("component", "cli"), zap.Error(err))
			return
		}
		a.logger.Info("re-rendered", zap.String("component", "cli"), zap.String("format", a.cfg.format))
	})
}

func (a *app) renderOnce(ctx context.Context) error {
	resp, _, err := a.load(ctx)
	if err != nil {
		return err
	}
	out, err := render.Render(ctx, resp.ReasoningMap, a.cfg.format, a.renderOptions())
	if err != nil {
		return err
	}
	if a.cfg.outFile == "" {
		_, err = a.stdout.Write(out)
		return err
	}
	if dir := filepath.Dir(a.cfg.outFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(a.cfg.outFile, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", a.cfg.outFile, err)
	}
	a.logger.Debug("wrote output", zap.String("component", "cli"), zap.String("path", a.cfg.outFile))
	return nil
}

func (a *app) runServer(ctx context.Context) error {
	var an web.Analyzer
	if built, err := a.newAnalyzer(ctx); err != nil {
		a.logger.Warn("analysis disabled; stored analyses can still be explored",
			zap.String("component", "cli"), zap.Error(err))
	} else {
		an = built
	}

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.port)
	srv, err := web.NewServer(web.ServerConfig{
		Addr:     addr,
		Analyzer: an,
		Layout:   a.layout,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	var sess *web.Session
	if a.cfg.inputFile != "" || a.cfg.source != "" {
		if sess, err = a.preload(ctx, srv); err != nil {
			srv.Close()
			return err
		}
		a.logger.Info("session ready",
			zap.String("component", "cli"),
			zap.String("url", "http://"+addr+"/sessions/"+sess.ID))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if sess != nil && a.cfg.watch {
		g.Go(func() error {
			return watchFile(gctx, a.cfg.watchPath(), watchDebounce, a.logger, func() {
				next, err := a.preload(gctx, srv)
				if err != nil {
					a.logger.Error("reload failed", zap.String("component", "cli"), zap.Error(err))
					return
				}
				srv.Store().Delete(sess.ID)
				sess = next
				a.logger.Info("session reloaded",
					zap.String("component", "cli"),
					zap.String("url", "http://"+addr+"/sessions/"+sess.ID))
			})
		})
	}
	return g.Wait()
}

func (a *app) preload(ctx context.Context, srv *web.Server) (*web.Session, error) {
	resp, text, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return srv.OpenSession(resp, text, a.mode), nil
}

func (a *app) runTUI(ctx context.Context) error {
	opts := tui.Options{
		Layout: a.layout,
		Logger: a.logger,
		Mode:   a.mode,
	}
	if an, err := a.newAnalyzer(ctx); err == nil {
		opts.Analyzer = an
	}
	switch {
	case a.cfg.inputFile != "":
		resp, _, err := a.load(ctx)
		if err != nil {
			return err
		}
		opts.Analysis = resp
	case a.cfg.source != "":
		text, err := a.readSource()
		if err != nil {
			return err
		}
		opts.Text = text
	}

	p := tea.NewProgram(tui.NewAppModel(ctx, opts),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(tui.AppModel); ok {
		m.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
