package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/danmuck/amlctl/internal/config"
	"github.com/danmuck/amlctl/internal/logging"
)

const usage = `usage: amlctl <command> [flags]

commands:
  parse         parse AML messages from arguments or stdin lines
  encode        build an AML message from flags
  check-config  validate an amld config file
`

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "parse":
		err = runParse(args[1:], stdin, stdout, stderr)
	case "encode":
		err = runEncode(args[1:], stdout, stderr)
	case "check-config":
		err = runCheckConfig(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "amlctl: unknown command %q\n%s", args[0], usage)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errRejected):
		return 1
	default:
		fmt.Fprintf(stderr, "amlctl: %v\n", err)
		return 1
	}
}

// errRejected marks a parse run where at least one message failed; the
// per-message errors were already printed.
var errRejected = errors.New("one or more messages rejected")

type parseLine struct {
	Input     string       `json:"input"`
	Message   *aml.Message `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	Outcome   string       `json:"outcome"`
	Reason    string       `json:"reason,omitempty"`
	Attribute string       `json:"attribute,omitempty"`
}

func runParse(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noValidate := fs.Bool("no-validate", false, "skip interface version validation")
	asJSON := fs.Bool("json", false, "print one JSON object per message")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []aml.Option
	if *noValidate {
		opts = append(opts, aml.WithValidator(nil))
	}
	parser := aml.NewParser(opts...)

	inputs := fs.Args()
	if len(inputs) == 0 {
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				continue
			}
			inputs = append(inputs, line)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	enc := json.NewEncoder(stdout)
	failed := false
	for _, raw := range inputs {
		msg, err := parser.Parse(raw)
		if err != nil {
			failed = true
		}
		if *asJSON {
			if err := enc.Encode(newParseLine(raw, msg, err)); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			fmt.Fprintf(stdout, "REJECT %s\n", err)
			continue
		}
		fmt.Fprintf(stdout, "OK     %s\n", msg)
	}
	if failed {
		return errRejected
	}
	return nil
}

func newParseLine(raw string, msg aml.Message, err error) parseLine {
	out := parseLine{Input: raw, Outcome: aml.Outcome(err), Reason: aml.Reason(err)}
	if err == nil {
		out.Message = &msg
		return out
	}
	out.Error = err.Error()
	var parseErr *aml.ParseError
	var validationErr *aml.ValidationError
	if errors.As(err, &parseErr) {
		out.Attribute = parseErr.Attribute
	} else if errors.As(err, &validationErr) {
		out.Attribute = validationErr.Field
	}
	return out
}

func runEncode(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	version := fs.Int("version", aml.SupportedVersion, "interface version (A\"ML)")
	lat := fs.Float64("lat", 0, "latitude in degrees")
	lon := fs.Float64("lon", 0, "longitude in degrees")
	radius := fs.Float64("radius", 0, "radius in meters")
	top := fs.String("top", "", "time of positioning, yyyyMMddHHmmss UTC")
	lc := fs.Int("lc", 0, "level of confidence in percent")
	pm := fs.String("pm", "", "positioning method: G, W, C or N")
	imsi := fs.String("imsi", "", "IMSI")
	imei := fs.String("imei", "", "IMEI")
	mcc := fs.String("mcc", "", "mobile country code")
	mnc := fs.String("mnc", "", "mobile network code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("encode: unexpected arguments %q", fs.Args())
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	msg := aml.Message{Version: version}
	if set["lat"] {
		msg.Latitude = lat
	}
	if set["lon"] {
		msg.Longitude = lon
	}
	if set["radius"] {
		msg.RadiusMeters = radius
	}
	if set["top"] {
		ts, err := aml.ParseTimestamp(*top)
		if err != nil {
			return fmt.Errorf("encode: -top: %w", err)
		}
		msg.TimeOfPositioning = &ts
	}
	if set["lc"] {
		msg.LevelOfConfidence = lc
	}
	if set["pm"] {
		method, err := aml.ParsePositioningMethod(*pm)
		if err != nil {
			return fmt.Errorf("encode: -pm: %w", err)
		}
		msg.PositionMethod = &method
	}
	if set["imsi"] {
		msg.IMSI = imsi
	}
	if set["imei"] {
		msg.IMEI = imei
	}
	if set["mcc"] {
		msg.MCC = mcc
	}
	if set["mnc"] {
		msg.MNC = mnc
	}

	if err := msg.CheckEncodable(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Fprintln(stdout, msg.Encode())
	return nil
}

func runCheckConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", "cmd/amld/config.toml", "amld config path (toml or yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "config ok: %s\n", *path)
	fmt.Fprintf(stdout, "  id=%s addr=%s\n", cfg.ID, cfg.Addr)
	fmt.Fprintf(stdout, "  validation=%s supported_versions=%v\n", cfg.Validation.Mode, cfg.Validation.SupportedVersions)
	fmt.Fprintf(stdout, "  archive=%t path=%s metrics=%t\n", cfg.Archive.Enabled, cfg.Archive.Path, cfg.Metrics.Enabled)
	return nil
}
