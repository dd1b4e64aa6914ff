package main

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythondecl"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoninfer"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
	"github.com/kiteco/typeinfer/kite-golib/kitelog"
	"github.com/kiteco/typeinfer/kite-golib/rollbar"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func fail(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("infer-types: ")

	args := struct {
		Input             string   `arg:"positional,required" help:"YAML file with the module's code objects"`
		Catalog           []string `arg:"separate" help:"additional stub files; the builtins are always loaded"`
		Config            string   `help:"YAML file with inference options"`
		Shallow           bool     `help:"only simulate code reachable from the module's top level"`
		NoSolve           bool     `help:"report unknowns instead of solving them"`
		MaxCombinations   int      `help:"argument combinations explored per call site"`
		MaxLoopIterations int      `help:"evaluations of a loop or recursive call before widening"`
		MaxCallDepth      int      `help:"nesting of simulated calls"`
		Timeout           time.Duration
		Expect            string `help:"compare the declarations to the rendering in this file"`
		Msgpack           string `help:"also write the declarations to this file as msgpack"`
		NoRollbar         bool   `help:"do not report internal errors to rollbar"`
		Verbose           bool
	}{
		Timeout: time.Minute,
	}
	arg.MustParse(&args)

	opts := pythoninfer.DefaultOptions
	if args.Config != "" {
		f, err := os.Open(args.Config)
		fail(err)
		opts, err = pythoninfer.LoadOptions(f)
		f.Close()
		fail(errors.WrapfOrNil(err, "loading %s", args.Config))
	}
	if args.Shallow {
		opts.Mode = pythoninfer.Shallow
	}
	if args.NoSolve {
		opts.SolveUnknowns = false
	}
	if args.MaxCombinations > 0 {
		opts.MaxCombinations = args.MaxCombinations
	}
	if args.MaxLoopIterations > 0 {
		opts.MaxLoopIterations = args.MaxLoopIterations
	}
	if args.MaxCallDepth > 0 {
		opts.MaxCallDepth = args.MaxCallDepth
	}
	opts.Verbose = opts.Verbose || args.Verbose

	rollbar.SetCodeVersion(version)
	if args.NoRollbar {
		rollbar.Disable()
	}
	defer rollbar.Wait()

	stubs := pythoncatalog.Builtins()
	fail(stubs.LoadFiles(args.Catalog...))
	cat := pythoncatalog.NewCachingCatalog(stubs, pythoncatalog.DefaultCacheSize)

	mod, err := pythonir.LoadFile(args.Input)
	fail(err)

	logger := kitelog.New(os.Stderr, "")
	start := time.Now()
	var out *pythondecl.Module
	err = kitectx.Background().WithLogger(logger).WithTimeout(args.Timeout, func(ctx kitectx.Context) error {
		var err error
		out, err = pythoninfer.Infer(ctx, mod, cat, opts)
		return err
	})
	var expired kitectx.ContextExpiredError
	if errors.As(err, &expired) {
		rollbar.Error(err, mod.Name, args.Timeout.String())
		rollbar.Wait()
	}
	fail(err)

	fmt.Print(out.String())
	for _, d := range out.AllDiagnostics() {
		fmt.Fprintln(os.Stderr, color.YellowString("warning: %s", d))
	}
	if opts.Verbose {
		log.Printf("inferred %s declarations for %s in %s",
			humanize.Comma(int64(len(out.Constants)+len(out.Functions)+len(out.Classes))), mod.Name, time.Since(start))
	}

	if args.Msgpack != "" {
		f, err := os.Create(args.Msgpack)
		fail(err)
		w := bufio.NewWriter(f)
		fail(pythondecl.Encode(w, out))
		fail(w.Flush())
		fail(f.Close())
		if opts.Verbose {
			fi, err := os.Stat(args.Msgpack)
			fail(err)
			log.Printf("wrote %s to %s", humanize.Bytes(uint64(fi.Size())), args.Msgpack)
		}
	}

	if args.Expect != "" {
		buf, err := ioutil.ReadFile(args.Expect)
		fail(err)
		diff := pythondecl.Diff(string(buf), out.String())
		if diff == "" {
			fmt.Fprintln(os.Stderr, color.GreenString("declarations match %s", args.Expect))
			return
		}
		for _, line := range strings.SplitAfter(diff, "\n") {
			switch {
			case strings.HasPrefix(line, "- "):
				fmt.Fprint(os.Stderr, color.RedString("%s", line))
			case strings.HasPrefix(line, "+ "):
				fmt.Fprint(os.Stderr, color.GreenString("%s", line))
			default:
				fmt.Fprint(os.Stderr, line)
			}
		}
		os.Exit(1)
	}
}
