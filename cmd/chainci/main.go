package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"chainci/internal/config"
	"chainci/internal/core"
	"chainci/internal/ledger"
	"chainci/internal/logging"
	"chainci/internal/security"
	"chainci/internal/workflow"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: chainci <command> [flags]

commands:
  validate <file>     check a workflow definition for schema validity
  run                 execute the workflow for an event
  keygen              generate a signing key pair
  resolve <address>   look up an attestation address in the ledger`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "keygen":
		err = cmdKeygen(os.Args[2:])
	case "resolve":
		err = cmdResolve(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "chainci:", err)
		os.Exit(1)
	}
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("validate: exactly one workflow file expected")
	}

	wf, err := workflow.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := wf.Validate(core.ActionNames()...); err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d job(s))\n", fs.Arg(0), len(wf.Jobs))
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	confFile := fs.String("config", "", "path to config file")
	wfFile := fs.String("workflow", "", "workflow file (overrides config)")
	event := fs.String("event", "push", "repository event")
	branch := fs.String("branch", "main", "branch the event refers to")
	fs.Parse(args)

	conf, err := loadConfig(*confFile)
	if err != nil {
		return err
	}
	if *wfFile != "" {
		conf.Workflow = *wfFile
	}
	logging.Setup(conf.Logging.LogLevel)

	runner, err := core.New(conf)
	if err != nil {
		return err
	}
	defer runner.Close()

	runID, err := runner.StartRun(core.Event{Name: *event, Branch: *branch})
	if err != nil {
		return err
	}
	fmt.Println("run:", runID)

	if err := runner.ExecuteRun(context.Background(), runID); err != nil {
		return fmt.Errorf("run %s failed: %w", runID, err)
	}
	fmt.Println("run passed")
	return nil
}

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	pubPath := fs.String("pub", "keys/chainci.pub", "public key file")
	privPath := fs.String("priv", "keys/chainci.priv", "private key file")
	fs.Parse(args)

	pub, priv, err := security.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*pubPath), 0700); err != nil {
		return err
	}
	if err := security.SaveKeyPair(pub, priv, *pubPath, *privPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", *pubPath, *privPath)
	return nil
}

func cmdResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	confFile := fs.String("config", "", "path to config file")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("resolve: exactly one attestation address expected")
	}

	conf, err := loadConfig(*confFile)
	if err != nil {
		return err
	}
	led, err := ledger.Open(conf.LedgerPath)
	if err != nil {
		return err
	}
	entry, err := led.Resolve(fs.Arg(0))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entry)
}

func loadConfig(file string) (*config.Config, error) {
	if file == "" {
		return config.Default(), nil
	}
	return config.New(file)
}
