// roam is a direct peer-to-peer VPN.
//
// This binary creates and inspects network identities: a network is a name,
// a keypair, and an address range. Tunnels are not established yet.
//
// Usage:
//
//	roam [flags] new [-name NAME] [-subnet IP/CIDR] [-force]
//	roam [flags] connect TOKEN
//	roam [flags] list
//	roam [flags] show [-reveal] NAME
//
// Flags:
//
//	-config string
//	    Path to configuration file (default "~/.roam/config.toml")
//	-data-dir string
//	    Data directory (overrides config)
//	-v
//	    Enable verbose logging
//	-version
//	    Print version and exit
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"

	"github.com/roamvpn/roam/lib/core"
	apperrors "github.com/roamvpn/roam/lib/errors"
	"github.com/roamvpn/roam/lib/netconfig"
	"github.com/roamvpn/roam/lib/netkey"
	"github.com/roamvpn/roam/lib/validation"
	"github.com/roamvpn/roam/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, promptuiPrompter{}))
}

// prompter asks the user for a value until validate accepts it.
type prompter interface {
	Ask(label, def string, validate func(string) error) (string, error)
}

type promptuiPrompter struct{}

func (promptuiPrompter) Ask(label, def string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

// app carries what every subcommand needs.
type app struct {
	cfg    *core.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	prompt prompter
}

func run(args []string, stdout, stderr io.Writer, prompt prompter) int {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultConfigPath := filepath.Join(homeDir, core.DefaultDataDirName, core.DefaultConfigFile)

	fs := flag.NewFlagSet("roam", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	dataDir := fs.String("data-dir", "", "Data directory (overrides config)")
	verbose := fs.Bool("v", false, "Enable verbose logging")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "roam - Direct P2P VPN\n\n")
		fmt.Fprintf(stderr, "Usage:\n")
		fmt.Fprintf(stderr, "  roam [flags] new        Create a new network\n")
		fmt.Fprintf(stderr, "  roam [flags] connect    Connect to an existing network\n")
		fmt.Fprintf(stderr, "  roam [flags] list       List saved networks\n")
		fmt.Fprintf(stderr, "  roam [flags] show NAME  Print a saved network config\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "roam version %s\n", version.Full())
		return 0
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if *dataDir != "" {
		cfg.Node.DataDir = *dataDir
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	a := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr, prompt: prompt}
	switch rest[0] {
	case "new":
		return a.cmdNew(rest[1:])
	case "connect":
		return a.cmdConnect(rest[1:])
	case "list":
		return a.cmdList()
	case "show":
		return a.cmdShow(rest[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", rest[0])
		fs.Usage()
		return 2
	}
}

// cmdNew creates a network, prompting for whatever was not given as a flag.
func (a *app) cmdNew(args []string) int {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	name := fs.String("name", "", "Network name")
	subnetText := fs.String("subnet", "", "Network subnet as IP/CIDR (empty for the default)")
	force := fs.Bool("force", false, "Replace an existing network with the same name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	subnetGiven := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "subnet" {
			subnetGiven = true
		}
	})

	assembler, err := a.cfg.Assembler()
	if err != nil {
		a.logger.Error("invalid network settings", "error", err)
		return 1
	}
	bounds := a.cfg.Bounds()
	def, _ := a.cfg.DefaultSubnetDescriptor()

	// Values given as flags are not prompted for, so report every bad one
	// at once.
	var errs validation.Errors
	if *name != "" {
		errs.Add(validation.NetworkName("name", *name))
	}
	if subnetGiven {
		_, err := bounds.Parse(*subnetText)
		errs.Add(err)
	}
	if errs.HasErrors() {
		fmt.Fprintf(a.stderr, "Error: %v\n", errs)
		return 1
	}

	if *name == "" {
		fmt.Fprintln(a.stdout, "To set up your network, we need to ask a few questions first.")
		*name, err = a.prompt.Ask("What should this network be called?", "", func(s string) error {
			return validation.NetworkName("name", s)
		})
		if err != nil {
			return a.promptFailed(err)
		}
	}
	if !subnetGiven {
		label := fmt.Sprintf("What subnet should be used for this network? (or leave blank for %s)", def)
		*subnetText, err = a.prompt.Ask(label, "", func(s string) error {
			_, err := bounds.Parse(s)
			return err
		})
		if err != nil {
			return a.promptFailed(err)
		}
	}

	cfg, err := assembler.Assemble(*name, *subnetText)
	if err != nil {
		switch {
		case apperrors.IsInputError(err):
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		case apperrors.IsFatal(err):
			a.logger.Error("cannot create network keys", "error", err)
		default:
			a.logger.Error("failed to create network", "error", err)
		}
		return 1
	}

	path, err := a.cfg.Store().Save(cfg, *force)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			fmt.Fprintf(a.stderr, "Error: %v (use -force to replace it)\n", err)
			return 1
		}
		a.logger.Error("failed to save network config", "error", err)
		return 1
	}

	a.logger.Info("network created", "name", cfg.Name(), "subnet", cfg.Subnet().String(),
		"fingerprint", cfg.Key().Fingerprint(), "path", path)
	fmt.Fprintf(a.stdout, "Network:      %s\n", cfg.Name())
	fmt.Fprintf(a.stdout, "Subnet:       %s\n", cfg.Subnet())
	fmt.Fprintf(a.stdout, "Fingerprint:  %s\n", cfg.Key().Fingerprint())
	fmt.Fprintf(a.stdout, "Access token: %s\n", netkey.Encode(cfg.Key().AccessOnly()))
	fmt.Fprintf(a.stdout, "Saved to:     %s\n", path)
	return 0
}

func (a *app) promptFailed(err error) int {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		fmt.Fprintln(a.stderr, "Aborted.")
		return 130
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return 1
}

// cmdConnect decodes a pasted token. Joining the network is not
// implemented; the command reports what the token would grant.
func (a *app) cmdConnect(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(a.stderr, "Usage: roam connect <token>")
		return 2
	}
	token := args[0]
	if err := validation.KeyToken("token", token); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	key, err := netkey.DecodeWith(token, a.cfg.DecodePolicy())
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	if err := key.Verify(); err != nil {
		a.logger.Warn("token does not hold a valid keypair", "error", err)
	}

	access := "join"
	if key.HasSecret() {
		access = "join and control"
	}
	fmt.Fprintf(a.stdout, "Fingerprint:  %s\n", key.Fingerprint())
	fmt.Fprintf(a.stdout, "Grants:       %s\n", access)
	fmt.Fprintln(a.stdout, "Connecting to networks is not supported yet.")
	return 0
}

func (a *app) cmdList() int {
	configs, err := a.cfg.Store().List()
	if err != nil {
		a.logger.Error("failed to list networks", "error", err)
		return 1
	}
	if len(configs) == 0 {
		fmt.Fprintln(a.stdout, "No networks")
		return 0
	}

	fmt.Fprintf(a.stdout, "%-24s %-24s %-16s %-8s\n", "NAME", "SUBNET", "FINGERPRINT", "ROLE")
	for _, c := range configs {
		role := "member"
		if c.IsController() {
			role = "owner"
		}
		fmt.Fprintf(a.stdout, "%-24s %-24s %-16s %-8s\n", c.Name(), c.Subnet(), c.Key().Fingerprint(), role)
	}
	return 0
}

// cmdShow prints a saved record. The secret key is withheld unless -reveal
// is given.
func (a *app) cmdShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	reveal := fs.Bool("reveal", false, "Include the secret key in the output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(a.stderr, "Usage: roam show [-reveal] <name>")
		return 2
	}

	cfg, err := a.cfg.Store().Load(fs.Arg(0))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			fmt.Fprintf(a.stderr, "Error: no network named %q\n", fs.Arg(0))
			return 1
		}
		a.logger.Error("failed to load network", "error", err)
		return 1
	}

	if !*reveal && cfg.IsController() {
		cfg, err = netconfig.New(cfg.Name(), cfg.Key().AccessOnly(), cfg.Subnet())
		if err != nil {
			a.logger.Error("failed to redact network", "error", err)
			return 1
		}
	}

	data, err := cfg.ToJSONIndent()
	if err != nil {
		a.logger.Error("failed to render network", "error", err)
		return 1
	}
	fmt.Fprintln(a.stdout, string(data))
	return 0
}
