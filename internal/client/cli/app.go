// Package cli implements the interactive tidesync client: a small REPL
// over the sync engine, plus the sign-in flow and attachment transfer.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/offlinehq/tidesync/internal/client/config"
	"github.com/offlinehq/tidesync/internal/client/engine"
	"github.com/offlinehq/tidesync/internal/client/queue"
	"github.com/offlinehq/tidesync/internal/client/remote"
	"github.com/offlinehq/tidesync/internal/client/session"
	"github.com/offlinehq/tidesync/internal/client/store"
	"github.com/offlinehq/tidesync/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	session *session.Session
	remote  remote.Client
	store   store.Store
	queue   queue.Queue
	engine  *engine.Engine
	orch    *engine.Orchestrator
	http    *http.Client

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	sess := session.New()
	rc := remote.NewHTTPClient(cfg.ServerEndpointAddr, sess)
	st := store.NewSQLiteStore(db)
	q := queue.NewSQLiteQueue(db)
	eng := engine.New(st, q, rc, sess, cfg.Tables, logger)
	orch := engine.NewOrchestrator(eng, cfg.SyncInterval, cfg.OnlineCheckInterval, logger)

	return &App{
		config:  cfg,
		db:      db,
		session: sess,
		remote:  rc,
		store:   st,
		queue:   q,
		engine:  eng,
		orch:    orch,
		http:    &http.Client{},
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (a *App) Close() error {
	a.orch.Stop()
	return a.db.Close()
}

func (a *App) status() string {
	s := ""
	if owner := a.session.Owner(); owner != "" {
		s = owner + " "
	}
	if a.engine.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) printHelp() {
	if a.session.Authenticated() {
		fmt.Fprintln(a.out, "Available commands: add, list, get, edit, del, search, sync, status, attach, fetch, logout, exit")
	} else {
		fmt.Fprintln(a.out, "Available commands: register, login, exit")
	}
}

// Run starts the REPL and the background orchestrator. It returns when
// the user exits or input reaches EOF.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "tidesync CLI (type 'help' for commands)")

	a.orch.Start(ctx)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprintf(a.out, "tide %s> ", a.status())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if !a.dispatch(ctx, parts[0], parts[1:]) {
			return
		}
	}
}

// dispatch runs one command; the false return exits the REPL.
func (a *App) dispatch(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "help":
		a.printHelp()
	case "register":
		a.register(ctx)
	case "login":
		a.login(ctx)
	case "logout":
		a.logout(ctx)
	case "add":
		a.add(ctx, args)
	case "list":
		a.list(ctx, args)
	case "get":
		a.get(ctx, args)
	case "edit":
		a.edit(ctx, args)
	case "del":
		a.del(ctx, args)
	case "search":
		a.search(ctx, args)
	case "sync":
		a.sync(ctx)
	case "status":
		a.showStatus(ctx)
	case "attach":
		a.attach(ctx, args)
	case "fetch":
		a.fetch(ctx, args)
	case "exit", "quit":
		fmt.Fprintln(a.out, "Bye!")
		return false
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
	}
	return true
}
