package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rentacar/cmd/internal/passphrase"
	"rentacar/crypto"
	"rentacar/eventlog"
	"rentacar/rpc"
)

const defaultRPCEndpoint = "http://localhost:8545"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "keygen":
		err = runKeygen(args[1:], stdout)
	case "address":
		err = runAddress(args[1:], stdout)
	case "call":
		err = runCall(args[1:], stdout)
	case "get":
		err = runGet(args[1:], stdout)
	case "export-events":
		err = runExportEvents(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentacar-cli <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen -keystore <path>                          create a new encrypted key")
	fmt.Fprintln(w, "  address -keystore <path>                         print the key's account address")
	fmt.Fprintln(w, "  call -keystore <path>[,<path>] <method> <json>   sign and submit a contract call")
	fmt.Fprintln(w, "  get <path>                                       query a read endpoint, e.g. /v1/cars")
	fmt.Fprintln(w, "  export-events -dsn <dsn> -out <file.parquet>     dump the event log to parquet")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Methods: %s\n", strings.Join(rpc.Methods(), ", "))
	fmt.Fprintf(w, "The RPC endpoint defaults to %s (override with -rpc or RENTACAR_RPC).\n", defaultRPCEndpoint)
	fmt.Fprintf(w, "Keystore passphrases are read from %s or prompted for.\n", passphrase.EnvKeystorePassphrase)
}

func endpointFlag(fs *flag.FlagSet) *string {
	def := strings.TrimSpace(os.Getenv("RENTACAR_RPC"))
	if def == "" {
		def = defaultRPCEndpoint
	}
	return fs.String("rpc", def, "rentacard RPC endpoint")
}

func runKeygen(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	path := fs.String("keystore", "", "output keystore path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-keystore is required")
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("%s already exists", *path)
	}
	pass, err := passphrase.NewSource(passphrase.EnvKeystorePassphrase, "new keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*path, key, pass); err != nil {
		return err
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return nil
}

func runAddress(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	path := fs.String("keystore", "", "keystore path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	keys, err := loadKeys(*path)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, keys[0].PubKey().Address().String())
	return nil
}

func runCall(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	paths := fs.String("keystore", "", "comma-separated keystore paths; every key signs the call")
	endpoint := endpointFlag(fs)
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: call -keystore <path> <method> <params-json>")
	}
	method, rawParams := fs.Arg(0), fs.Arg(1)
	if !json.Valid([]byte(rawParams)) {
		return fmt.Errorf("params are not valid JSON")
	}
	keys, err := loadKeys(*paths)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	resp, err := rpc.NewClient(*endpoint).Call(ctx, method, json.RawMessage(rawParams), keys...)
	if err != nil {
		return err
	}
	return printJSON(stdout, resp)
}

func runGet(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	endpoint := endpointFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: get <path>")
	}
	path := fs.Arg(0)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var out json.RawMessage
	if err := rpc.NewClient(*endpoint).Get(context.Background(), path, &out); err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, pretty.String())
	return err
}

func runExportEvents(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export-events", flag.ContinueOnError)
	dsn := fs.String("dsn", "./rentacar-data/events.db", "event log DSN (sqlite path or postgres:// URL)")
	out := fs.String("out", "events.parquet", "output parquet file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := eventlog.Open(*dsn, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	n, err := store.ExportParquet(context.Background(), *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d events to %s\n", n, *out)
	return nil
}

func loadKeys(paths string) ([]*crypto.PrivateKey, error) {
	var keys []*crypto.PrivateKey
	pass := passphrase.NewSource(passphrase.EnvKeystorePassphrase, "keystore")
	for _, path := range strings.Split(paths, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		secret, err := pass.Get()
		if err != nil {
			return nil, err
		}
		key, err := crypto.LoadFromKeystore(path, secret)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, errors.New("-keystore is required")
	}
	return keys, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
