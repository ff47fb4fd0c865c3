package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vyn-lang/vync/internal/pipeline"
	"github.com/vyn-lang/vync/pkg/bytecode"
	"github.com/vyn-lang/vync/pkg/config"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/historystore"
	"github.com/vyn-lang/vync/pkg/hotreload"
	"github.com/vyn-lang/vync/pkg/metrics"
	"github.com/vyn-lang/vync/pkg/objcache"
	"github.com/vyn-lang/vync/pkg/websocket"
)

var version = "0.1.0"

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	requestColor = color.New(color.FgMagenta)
)

var (
	noProgress bool
	verbose    bool
	quiet      bool
	slowMode   bool
)

func printInfo(msg string) {
	if quiet {
		return
	}
	infoColor.Printf("[INFO] %s\n", msg)
}

func printSuccess(msg string) {
	if quiet {
		return
	}
	successColor.Printf("[SUCCESS] %s\n", msg)
}

func printWarning(msg string) {
	if quiet {
		return
	}
	warningColor.Printf("[WARNING] %s\n", msg)
}

func printError(err error) {
	errorColor.Printf("[ERROR] %s\n", err.Error())
}

func printRequest(method, path string) {
	requestColor.Printf("[%s] %s ", method, path)
}

func printDuration(d time.Duration) {
	fmt.Printf("(%dms)\n", d.Milliseconds())
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     "vync",
		Short:   "Vync compiler - a register-based bytecode toolchain",
		Version: version,
	}
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable phase progress output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print per-phase timing")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&slowMode, "slow-mode", false, "Accepted and ignored; has no effect on any command")

	var runCmd = &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and execute a source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().String("cache", "", "Object cache DSN (redis://...); empty uses the in-process LRU cache")
	runCmd.Flags().String("history", "", "History store DSN (postgres://, mysql://, mongodb://); empty opens a local SQLite file")
	runCmd.Flags().String("history-path", "", "SQLite path for --history when no DSN is given")

	var checkCmd = &cobra.Command{
		Use:   "check <file>",
		Short: "Run the pipeline up to emission without executing",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	var disasmCmd = &cobra.Command{
		Use:   "disasm <file>",
		Short: "Compile a source file and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE:  runDisasm,
	}
	disasmCmd.Flags().Bool("bytecode", false, "Treat <file> as an already-built .hydc object instead of source")

	var buildCmd = &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a source file to a .hydc bytecode object",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	buildCmd.Flags().StringP("output", "o", "", "Output file")

	var watchCmd = &cobra.Command{
		Use:   "watch <file>",
		Short: "Recompile and rerun a source file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().Int("debounce-ms", 200, "Debounce window between successive reloads")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run a WebSocket compile daemon",
		RunE:  runServe,
	}
	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().String("watch", "", "Host a single program from this file, live-reloaded on change, instead of compiling per-message source")

	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent compilations",
		RunE:  runHistory,
	}
	historyCmd.Flags().String("dsn", "", "History store DSN; empty opens a local SQLite file")
	historyCmd.Flags().String("path", ".vync/history.db", "SQLite path when --dsn is empty")
	historyCmd.Flags().Int("limit", 20, "Number of entries to show")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the vync version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, checkCmd, disasmCmd, buildCmd, watchCmd, serveCmd, historyCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// compile runs the pipeline over path's contents, printing diagnostics
// and per-phase timings according to the global --verbose/--quiet flags.
func compile(path string) (pipeline.Result, string, error) {
	source, err := readSource(path)
	if err != nil {
		return pipeline.Result{}, "", err
	}

	printInfo(fmt.Sprintf("Compiling %s", path))
	start := time.Now()
	res := pipeline.Compile(source)
	total := time.Since(start)

	if verbose {
		for _, t := range res.Timings {
			printInfo(fmt.Sprintf("  %-10s %s", t.Name, t.Duration))
		}
	}

	if res.Diagnostics.Len() > 0 {
		fmt.Print(diag.RenderAll(res.Diagnostics, source, !noProgress))
	}
	if res.Failed {
		return res, source, fmt.Errorf("compilation failed with %d diagnostic(s)", res.Diagnostics.Len())
	}

	printSuccess(fmt.Sprintf("Compiled %s", path))
	printInfo(fmt.Sprintf("Compile time: %s", total))
	return res, source, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	cacheDSN, _ := cmd.Flags().GetString("cache")
	historyDSN, _ := cmd.Flags().GetString("history")
	historyPath, _ := cmd.Flags().GetString("history-path")

	oc, err := objcache.New(cacheDSN)
	if err != nil {
		return fmt.Errorf("opening object cache: %w", err)
	}

	source, err := readSource(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	key := objcache.Key(source)
	bc, hit := oc.Get(ctx, key)

	start := time.Now()
	var compileErr error
	diagCount := 0
	if !hit {
		res := pipeline.Compile(source)
		diagCount = res.Diagnostics.Len()
		if diagCount > 0 {
			fmt.Print(diag.RenderAll(res.Diagnostics, source, !noProgress))
		}
		if res.Failed {
			compileErr = fmt.Errorf("compilation failed with %d diagnostic(s)", diagCount)
		} else {
			bc = res.Bytecode
			if err := oc.Put(ctx, key, bc); err != nil {
				printWarning(fmt.Sprintf("object cache put failed: %v", err))
			}
		}
	} else {
		printInfo("Object cache hit, skipping recompilation")
	}

	var runErr error
	if compileErr == nil {
		runErr = pipeline.Run(bc, os.Stdout)
	}
	duration := time.Since(start)

	if historyDSN != "" || historyPath != "" || cmd.Flags().Changed("history") {
		store, err := historystore.Open(ctx, historyDSN, historyPath)
		if err != nil {
			printWarning(fmt.Sprintf("history store unavailable: %v", err))
		} else {
			entry := historystore.Entry{
				Path:        path,
				Succeeded:   compileErr == nil && runErr == nil,
				Diagnostics: diagCount,
				Duration:    duration,
				CompiledAt:  time.Now(),
			}
			if err := store.Record(ctx, entry); err != nil {
				printWarning(fmt.Sprintf("recording history: %v", err))
			}
			store.Close()
		}
	}

	if compileErr != nil {
		return compileErr
	}
	if runErr != nil {
		printError(runErr)
		return runErr
	}
	printDuration(duration)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, _, err := compile(args[0])
	return err
}

func runDisasm(cmd *cobra.Command, args []string) error {
	path := args[0]
	asObject, _ := cmd.Flags().GetBool("bytecode")

	var bc bytecode.Bytecode
	if asObject {
		loaded, err := bytecode.Load(path)
		if err != nil {
			return fmt.Errorf("loading bytecode object: %w", err)
		}
		bc = loaded
	} else {
		res, _, err := compile(path)
		if err != nil {
			return err
		}
		bc = res.Bytecode
	}

	return bytecode.Disassemble(os.Stdout, bc)
}

func runBuild(cmd *cobra.Command, args []string) error {
	path := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = changeExtension(path, ".hydc")
	}

	res, _, err := compile(path)
	if err != nil {
		return err
	}

	if err := bytecode.Save(res.Bytecode, output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printSuccess(fmt.Sprintf("Built %s", output))
	return nil
}

// runWatch recompiles and reruns path whenever it changes, debouncing
// bursts of fsnotify events (editors often emit several writes per
// save) into a single recompile.
func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	debounceMs, _ := cmd.Flags().GetInt("debounce-ms")
	debounce := time.Duration(debounceMs) * time.Millisecond
	filename := filepath.Base(path)

	runOnce := func() {
		res, _, err := compile(path)
		if err != nil {
			printError(err)
			return
		}
		if err := pipeline.Run(res.Bytecode, os.Stdout); err != nil {
			printError(err)
		}
	}

	runOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	printInfo(fmt.Sprintf("Watching %s for changes (ctrl-c to stop)", path))

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				printInfo(fmt.Sprintf("%s changed, recompiling", path))
				runOnce()
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printWarning(fmt.Sprintf("watch error: %v", err))
		case <-sig:
			return nil
		}
	}
}

// wireProgram is the JSON encoding hotreload.CompilerInterface/
// ServerInterface pass emitted bytecode through as, mirroring
// pkg/objcache's Redis wire format.
type wireProgram struct {
	Instructions []byte              `json:"instructions"`
	Constants    []bytecode.Constant `json:"constants"`
	Strings      []string            `json:"strings"`
}

// servedProgram holds the bytecode a `serve --watch` daemon currently
// executes, swapped atomically on every successful hot reload.
type servedProgram struct {
	mu sync.RWMutex
	bc bytecode.Bytecode
	ok bool
}

func (s *servedProgram) get() (bytecode.Bytecode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bc, s.ok
}

func (s *servedProgram) set(bc bytecode.Bytecode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bc, s.ok = bc, true
}

// fileCompiler adapts the pipeline to hotreload.CompilerInterface.
type fileCompiler struct{}

func (fileCompiler) CompileFile(path string) ([]byte, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	res := pipeline.Compile(source)
	if res.Failed {
		return nil, fmt.Errorf("compilation failed with %d diagnostic(s)", res.Diagnostics.Len())
	}
	return json.Marshal(wireProgram{
		Instructions: res.Bytecode.Instructions,
		Constants:    res.Bytecode.Constants,
		Strings:      res.Bytecode.Strings,
	})
}

// servedProgramReloader adapts servedProgram to hotreload.ServerInterface;
// the serve daemon has no cross-reload session state to preserve, so
// Get/SetState are no-ops.
type servedProgramReloader struct {
	program *servedProgram
}

func (r servedProgramReloader) Reload(data []byte) error {
	var w wireProgram
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.program.set(bytecode.Bytecode{Instructions: w.Instructions, Constants: w.Constants, Strings: w.Strings})
	return nil
}

func (servedProgramReloader) GetState() map[string]interface{}      { return nil }
func (servedProgramReloader) SetState(map[string]interface{}) error { return nil }

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	watchPath, _ := cmd.Flags().GetString("watch")
	m := metrics.NewCompilerMetrics()

	var served *servedProgram
	if watchPath != "" {
		served = &servedProgram{}
		compiler := fileCompiler{}
		reloader := servedProgramReloader{program: served}

		data, err := compiler.CompileFile(watchPath)
		if err != nil {
			return fmt.Errorf("initial compile of %s: %w", watchPath, err)
		}
		if err := reloader.Reload(data); err != nil {
			return err
		}

		rm := hotreload.NewReloadManager([]string{watchPath}, compiler, reloader,
			hotreload.WithErrorHandler(func(err error) { printWarning(fmt.Sprintf("reload failed: %v", err)) }),
			hotreload.WithOnReload(func(ev hotreload.ReloadEvent) {
				if ev.Success {
					printInfo(fmt.Sprintf("reloaded %s (reload #%d)", watchPath, ev.ReloadCount))
				}
			}),
		)

		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer cancelWatch()
		if err := rm.Start(watchCtx); err != nil {
			return fmt.Errorf("starting hot reload: %w", err)
		}
		defer rm.Stop()
		printInfo(fmt.Sprintf("Watching %s for changes", watchPath))
	}

	server := websocket.NewServer()
	server.OnMessage(websocket.MessageTypeText, func(ctx *websocket.MessageContext) error {
		var bc bytecode.Bytecode
		if served != nil {
			loaded, ok := served.get()
			if !ok {
				return ctx.ReplyError(fmt.Errorf("no program loaded yet"))
			}
			bc = loaded
		} else {
			source, ok := ctx.Message.Data.(string)
			if !ok {
				return ctx.ReplyError(fmt.Errorf("expected source text, got %T", ctx.Message.Data))
			}

			res := pipeline.Compile(source)
			for _, t := range res.Timings {
				m.ObservePhase(t.Name, t.Duration.Seconds())
			}

			if res.Failed {
				m.RecordCompile("failed")
				for _, d := range res.Diagnostics.All() {
					m.RecordDiagnostic(string(d.Category()))
				}
				return ctx.ReplyJSON(map[string]interface{}{
					"ok":          false,
					"diagnostics": diag.RenderAll(res.Diagnostics, source, false),
				})
			}
			m.RecordCompile("ok")
			bc = res.Bytecode
		}

		start := time.Now()
		var out strings.Builder
		runErr := pipeline.Run(bc, &out)
		if runErr != nil {
			return ctx.ReplyJSON(map[string]interface{}{
				"ok":    false,
				"error": runErr.Error(),
			})
		}
		return ctx.ReplyJSON(map[string]interface{}{
			"ok":          true,
			"output":      out.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(m.Handler(), promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)
	printInfo(fmt.Sprintf("Listening on %s (ws://%s/ws)", addr, addr))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		printInfo("Shutting down")
		server.Shutdown()
		httpServer.Close()
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	dsn, _ := cmd.Flags().GetString("dsn")
	path, _ := cmd.Flags().GetString("path")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := context.Background()
	store, err := historystore.Open(ctx, dsn, path)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	for _, e := range entries {
		status := successColor.Sprint("ok")
		if !e.Succeeded {
			status = errorColor.Sprint("failed")
		}
		fmt.Printf("%-6d %-40s %-8s %6s  %s\n", e.ID, e.Path, status, e.Duration, e.CompiledAt.Format(time.RFC3339))
	}
	return nil
}

func changeExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
