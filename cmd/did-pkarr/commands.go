// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/urfave/cli.v1"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/identity"
	"github.com/aumos-ai/did-pkarr/keys"
	"github.com/aumos-ai/did-pkarr/pkarr"
)

var (
	commandKeygen = cli.Command{
		Name:      "keygen",
		Aliases:   []string{"k"},
		Usage:     "create an ed25519 key and print its did:pkarr",
		ArgsUsage: "seed-file",
		Action:    keygen,
	}
	commandPublish = cli.Command{
		Name:      "publish",
		Aliases:   []string{"p"},
		Usage:     "sign and publish the document of a key",
		ArgsUsage: "seed-file",
		Action:    publish,
		Flags: []cli.Flag{
			cli.StringSliceFlag{
				Name:  "aka, a",
				Usage: "alsoKnownAs URI, may be repeated",
			},
			cli.StringSliceFlag{
				Name:  "vm, m",
				Usage: "verification method as did-url=relationship[|relationship], may be repeated",
			},
			cli.BoolFlag{
				Name:  "no-self",
				Usage: "do not list the signing key as a verification method",
			},
		},
	}
	commandResolve = cli.Command{
		Name:      "resolve",
		Aliases:   []string{"r"},
		Usage:     "fetch and print the document of a DID",
		ArgsUsage: "did",
		Action:    resolve,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "most-recent",
				Usage: "ask every relay and keep the newest document",
			},
			cli.BoolFlag{
				Name:  "json",
				Usage: "print a W3C DID document",
			},
		},
	}
	commandServe = cli.Command{
		Name:   "serve",
		Usage:  "run an in-memory pkarr relay",
		Action: serve,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "listen, l",
				Value: "127.0.0.1:6881",
				Usage: "address to listen on",
			},
		},
	}
	commandConfig = cli.Command{
		Name:   "config",
		Usage:  "print the effective configuration",
		Action: printConfig,
	}
)

func keygen(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("please give the file to write the seed to")
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	ctx, cancel := commandContext()
	defer cancel()
	kp, err := keys.NewInMemoryKeyStore().Generate(ctx)
	if err != nil {
		return err
	}
	if err := keys.SaveSeed(path, kp); err != nil {
		return err
	}
	id, err := kp.DID()
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func publish(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("please give the seed file of the identity")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := documentOptions(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := cfg.RelayClient(slog.Default())
	if err != nil {
		return err
	}
	km := keys.NewInMemoryKeyStore()
	mgr, err := identity.NewIdentityManager(identity.ManagerOptions{
		Resolver:   cfg.Resolver(client, slog.Default()),
		KeyManager: km,
	})
	if err != nil {
		return err
	}

	kp, err := keys.LoadSeed(ctx, km, c.Args().First())
	if err != nil {
		return err
	}
	agent, err := mgr.AdoptKey(ctx, kp.KeyID, opts)
	if err != nil {
		return err
	}

	fmt.Println(agent.DID)
	for _, attr := range agent.Record {
		fmt.Println(" ", attr)
	}
	fmt.Printf("published at %s\n", agent.LastPublish.PublishedAt.Format(time.RFC3339Nano))
	return nil
}

// documentOptions collects the publish flags.
func documentOptions(c *cli.Context) (identity.DocumentOptions, error) {
	opts := identity.DocumentOptions{
		AlsoKnownAs:    c.StringSlice("aka"),
		OmitSigningKey: c.Bool("no-self"),
	}
	for _, arg := range c.StringSlice("vm") {
		m, err := parseMethodSpec(arg)
		if err != nil {
			return opts, err
		}
		opts.Methods = append(opts.Methods, m)
	}
	return opts, nil
}

// parseMethodSpec splits on the last '=' since DID URL fragments may contain one.
func parseMethodSpec(arg string) (identity.MethodSpec, error) {
	i := strings.LastIndexByte(arg, '=')
	if i <= 0 {
		return identity.MethodSpec{}, fmt.Errorf("--vm %q: expected did-url=relationship", arg)
	}
	r, err := document.ParseRelationship(arg[i+1:])
	if err != nil {
		return identity.MethodSpec{}, fmt.Errorf("--vm %q: %w", arg, err)
	}
	return identity.MethodSpec{Method: arg[:i], Relationship: r}, nil
}

func resolve(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("please give a DID")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("most-recent") {
		cfg.MostRecent = true
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := cfg.RelayClient(slog.Default())
	if err != nil {
		return err
	}
	r := cfg.Resolver(client, slog.Default())

	if c.Bool("json") {
		dr := identity.NewDIDResolver(identity.ResolverOptions{Pkarr: r, MostRecent: cfg.MostRecent})
		doc, err := dr.Resolve(ctx, c.Args().First())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	id, err := did.ParsePkarr(c.Args().First())
	if err != nil {
		return err
	}
	resolveFn := r.Resolve
	if cfg.MostRecent {
		resolveFn = r.ResolveMostRecent
	}
	doc, err := resolveFn(ctx, id)
	if err != nil {
		return err
	}
	return printDocument(os.Stdout, doc)
}

func printDocument(w io.Writer, doc *document.Document) error {
	if _, err := fmt.Fprintln(w, doc.DID()); err != nil {
		return err
	}
	for _, u := range doc.AlsoKnownAs() {
		fmt.Fprintf(w, "  alsoKnownAs  %s\n", u)
	}
	for _, pair := range doc.VerificationMethods() {
		fmt.Fprintf(w, "  method       %s (%s, %s)\n", pair.Method, pair.Method.Kind(), pair.Relationship)
	}
	return nil
}

func serve(c *cli.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	logger := slog.Default()
	srv := &http.Server{
		Addr:              c.String("listen"),
		Handler:           otelhttp.NewHandler(pkarr.NewHandler(pkarr.NewMemoryClient(), logger), "pkarr-relay"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("relay listening", slog.String("addr", srv.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, stop := timeoutContext(5 * time.Second)
	defer stop()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.Encode(os.Stdout)
}
