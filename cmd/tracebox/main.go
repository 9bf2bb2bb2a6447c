// Command tracebox is a minimal front end over the document package: post
// stores a file as a new fragment behind a fresh index, and lookup fetches
// a fragment back out given the index trace post printed.
//
// Each invocation runs against its own in-memory network (pkg/dht/memnet),
// created fresh at startup, so a lookup run as a separate process cannot
// see records stored by an earlier post.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tracebox-dev/tracebox/internal/config"
	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/dht/memnet"
	"github.com/tracebox-dev/tracebox/pkg/document"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/segment"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := dht.Config{Network: memnet.New()}
	if path := os.Getenv("TRACEBOX_CONFIG"); path != "" {
		f, err := config.Load(path)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg.StateDir = f.StateDir
	}

	ctx := context.Background()
	rt, err := dht.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("init network: %v", err)
	}
	defer func() {
		if err := rt.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	net, err := rt.Network(ctx)
	if err != nil {
		log.Fatalf("network not ready: %v", err)
	}

	switch os.Args[1] {
	case "post":
		runPost(ctx, net, os.Args[2:])
	case "lookup":
		runLookup(ctx, net, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tracebox post -file <path> -name <name>")
	fmt.Fprintln(os.Stderr, "       tracebox lookup -trace <index-trace>")
}

func runPost(ctx context.Context, net dht.Network, args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	file := fs.String("file", "", "path to the file to post (default: read stdin)")
	name := fs.String("name", "fragment", "display name for the new index")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	var data []byte
	var err error
	if *file != "" {
		data, err = os.ReadFile(*file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	identity, err := keys.RandomIdentity()
	if err != nil {
		log.Fatalf("generate identity: %v", err)
	}

	fragment, err := document.CreateFragment(ctx, net, identity, data)
	if err != nil {
		log.Fatalf("create fragment: %v", err)
	}

	seg, err := segment.New(*name)
	if err != nil {
		log.Fatalf("invalid name: %v", err)
	}
	meta := document.NewIndexMetadata(identity.Shard(), seg).WithFragment(fragment.Trace())
	index, err := document.CreateIndex(ctx, net, identity, meta)
	if err != nil {
		log.Fatalf("create index: %v", err)
	}

	fmt.Printf("shard:  %s\n", identity.Shard())
	fmt.Printf("trace:  %s\n", index.Trace().String())
}

func runLookup(ctx context.Context, net dht.Network, args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	traceStr := fs.String("trace", "", "index trace printed by post")
	password := fs.String("password", "", "password, if the trace is protected")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if *traceStr == "" {
		log.Fatal("missing -trace")
	}

	t, err := trace.Parse[trace.IndexKind](*traceStr)
	if err != nil {
		log.Fatalf("parse trace: %v", err)
	}

	// A Protected trace's password key is salted with the owning shard,
	// which the trace does not carry; read it from the record's owner.
	shard := keys.Shard{}
	if *password != "" {
		rec, err := dht.Open(ctx, net, t.Key())
		if err != nil {
			log.Fatalf("open index: %v", err)
		}
		shard = rec.Shard()
	}
	index, err := document.OpenIndex(ctx, net, t, shard, *password)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	meta, err := index.Meta(ctx)
	if err != nil {
		log.Fatalf("read metadata: %v", err)
	}
	if meta.Fragment == nil {
		log.Fatal("index has no fragment attached")
	}

	fragment, err := document.OpenFragment(ctx, net, *meta.Fragment, meta.Shard, "")
	if err != nil {
		if errors.Is(err, document.ErrLockedTrace) {
			log.Fatal("fragment trace is locked")
		}
		log.Fatalf("open fragment: %v", err)
	}
	data, err := fragment.Load(ctx)
	if err != nil {
		log.Fatalf("load fragment: %v", err)
	}
	os.Stdout.Write(data)
}

