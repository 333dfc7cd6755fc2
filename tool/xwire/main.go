/*
Copyright 2024 Cadre Data, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command xwire is a diagnostic client for X-protocol servers: it can ping
// a server, dump its capabilities, and run a single statement, exercising
// the full framing, compression, and reply pipeline over TCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/cadredata/xwire/lib/stream"
	"github.com/cadredata/xwire/lib/xproto/compress"
	"github.com/cadredata/xwire/lib/xproto/message"
	"github.com/cadredata/xwire/lib/xproto/session"
)

type cliConfig struct {
	addr        string
	user        string
	password    string
	database    string
	mechanism   string
	compression string
	timeout     time.Duration
	debug       bool
}

func main() {
	var cfg cliConfig

	app := kingpin.New("xwire", "Diagnostic client for X-protocol servers.")
	app.Flag("addr", "Server address as host:port.").Default("127.0.0.1:33060").StringVar(&cfg.addr)
	app.Flag("user", "User to authenticate as.").Envar("XWIRE_USER").StringVar(&cfg.user)
	app.Flag("password", "Password to authenticate with.").Envar("XWIRE_PASSWORD").StringVar(&cfg.password)
	app.Flag("database", "Default database.").StringVar(&cfg.database)
	app.Flag("mechanism", "Authentication mechanism.").Default("MYSQL41").EnumVar(&cfg.mechanism, "MYSQL41", "PLAIN")
	app.Flag("compression", "Compression algorithm to negotiate.").Default("").EnumVar(&cfg.compression, "", "deflate_stream", "lz4_message", "zstd_stream")
	app.Flag("timeout", "Timeout for the whole command.").Default("10s").DurationVar(&cfg.timeout)
	app.Flag("debug", "Enable debug logging.").BoolVar(&cfg.debug)

	cmdPing := app.Command("ping", "Connect and exchange capabilities, without authenticating.")
	cmdCaps := app.Command("capabilities", "Dump the server's capability set.")
	cmdExec := app.Command("exec", "Authenticate and run a single statement.")
	execStmt := cmdExec.Arg("statement", "Statement to execute.").Required().String()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	var err error
	switch cmd {
	case cmdPing.FullCommand():
		err = runPing(ctx, cfg)
	case cmdCaps.FullCommand():
		err = runCapabilities(ctx, cfg)
	case cmdExec.FullCommand():
		err = runExec(ctx, cfg, *execStmt)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", trace.UserMessage(err))
		os.Exit(1)
	}
}

// connect dials the server and wraps the connection in a session.
func connect(ctx context.Context, cfg cliConfig) (*session.Session, error) {
	conn, err := stream.Dial(ctx, "tcp", cfg.addr)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	sess, err := session.New(session.Config{Conn: conn})
	if err != nil {
		conn.Close()
		return nil, trace.Wrap(err)
	}
	return sess, nil
}

// authenticate runs the configured mechanism, negotiating compression
// first when requested.
func authenticate(ctx context.Context, sess *session.Session, cfg cliConfig) error {
	if cfg.compression != "" {
		alg, err := compress.ParseAlgorithm(cfg.compression)
		if err != nil {
			return trace.Wrap(err)
		}
		if err := sess.EnableCompression(ctx, alg); err != nil {
			return trace.Wrap(err)
		}
	}
	var mech session.Mechanism
	switch cfg.mechanism {
	case "PLAIN":
		mech = session.Plain{Database: cfg.database, User: cfg.user, Password: cfg.password}
	default:
		mech = session.MySQL41{Database: cfg.database, User: cfg.user, Password: cfg.password}
	}
	return trace.Wrap(sess.Authenticate(ctx, mech))
}

func runPing(ctx context.Context, cfg cliConfig) error {
	started := time.Now()
	sess, err := connect(ctx, cfg)
	if err != nil {
		return trace.Wrap(err)
	}
	defer sess.Close(ctx)
	if _, err := sess.CapabilitiesGet(ctx); err != nil {
		return trace.Wrap(err)
	}
	fmt.Printf("%v: up, round trip %v\n", cfg.addr, time.Since(started).Round(time.Millisecond))
	return nil
}

func runCapabilities(ctx context.Context, cfg cliConfig) error {
	sess, err := connect(ctx, cfg)
	if err != nil {
		return trace.Wrap(err)
	}
	defer sess.Close(ctx)
	caps, err := sess.CapabilitiesGet(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	for _, c := range caps.Capabilities {
		fmt.Printf("%s = %v\n", c.Name, c.Value)
	}
	return nil
}

func runExec(ctx context.Context, cfg cliConfig, stmt string) error {
	sess, err := connect(ctx, cfg)
	if err != nil {
		return trace.Wrap(err)
	}
	defer sess.Close(ctx)
	if err := authenticate(ctx, sess, cfg); err != nil {
		return trace.Wrap(err)
	}
	reply, err := sess.Execute(&message.StmtExecute{Stmt: []byte(stmt)})
	if err != nil {
		return trace.Wrap(err)
	}
	var collector session.Collector
	if err := reply.Drain(ctx, collector.Processors()); err != nil {
		return trace.Wrap(err)
	}
	printResult(&collector)
	return nil
}

func printResult(c *session.Collector) {
	for _, set := range c.Sets {
		if len(set.Columns) == 0 {
			continue
		}
		for i, col := range set.Columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(col.Name)
		}
		fmt.Println()
		for _, row := range set.Rows {
			for i, field := range row.Fields {
				if i > 0 {
					fmt.Print("\t")
				}
				fmt.Printf("%x", field)
			}
			fmt.Println()
		}
	}
	for _, w := range c.Warnings {
		fmt.Printf("warning %d: %s\n", w.Code, w.Message)
	}
	if c.ProducedMessage != "" {
		fmt.Println(c.ProducedMessage)
	}
	fmt.Printf("rows affected: %d\n", c.RowsAffected)
}
