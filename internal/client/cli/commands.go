package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/offlinehq/tidesync/internal/netx"
)

func (a *App) register(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	if err := a.remote.Register(ctx, username, password); err != nil {
		fmt.Fprintln(a.out, "Registration failed:", err)
		return
	}
	if err := a.remote.Login(ctx, username, password); err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return
	}
	a.orch.Start(ctx)
	fmt.Fprintln(a.out, "Registered and logged in as", username)
}

func (a *App) login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	if err := a.remote.Login(ctx, username, password); err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Logged in as", username)

	// a logout earlier in this process stopped the background loops
	a.orch.Start(ctx)

	// hydrate the local store right away instead of waiting for the ticker
	if err := a.orch.SyncNow(ctx); err != nil {
		fmt.Fprintln(a.out, "Initial sync failed:", err)
	}
}

func (a *App) logout(ctx context.Context) {
	if err := a.orch.SignOut(ctx); err != nil {
		fmt.Fprintln(a.out, "Sign-out failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Signed out, local data cleared")
}

func (a *App) add(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: add <table>")
		return
	}
	fields, err := GetFields(a.reader, a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	rec, err := a.engine.CreateRecord(ctx, args[0], fields)
	if err != nil {
		fmt.Fprintln(a.out, "Create failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Created", rec.ID)
}

func (a *App) list(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: list <table>")
		return
	}
	recs, err := a.engine.ListRecords(ctx, args[0])
	if err != nil {
		fmt.Fprintln(a.out, "List failed:", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No records")
		return
	}
	for _, rec := range recs {
		fmt.Fprintf(a.out, "%s  %s  %v\n", rec.ID, rec.UpdatedAt.Format("2006-01-02 15:04"), rec.Fields)
	}
}

func (a *App) get(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: get <table> <id>")
		return
	}
	rec, err := a.engine.ReadRecord(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintln(a.out, "Get failed:", err)
		return
	}
	fmt.Fprintf(a.out, "id: %s\nupdated: %s\n", rec.ID, rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	for name, value := range rec.Fields {
		fmt.Fprintf(a.out, "%s: %v\n", name, value)
	}
}

func (a *App) edit(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: edit <table> <id>")
		return
	}
	fields, err := GetFields(a.reader, a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	if _, err := a.engine.UpdateRecord(ctx, args[0], args[1], fields); err != nil {
		fmt.Fprintln(a.out, "Edit failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Updated", args[1])
}

func (a *App) del(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: del <table> <id>")
		return
	}
	if err := a.engine.SoftDeleteRecord(ctx, args[0], args[1]); err != nil {
		fmt.Fprintln(a.out, "Delete failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Deleted", args[1])
}

func (a *App) search(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: search <table> <text>")
		return
	}
	recs, err := a.engine.Search(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintln(a.out, "Search failed:", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No matches")
		return
	}
	for _, rec := range recs {
		fmt.Fprintf(a.out, "%s  %v\n", rec.ID, rec.Fields)
	}
}

func (a *App) sync(ctx context.Context) {
	if err := a.orch.SyncNow(ctx); err != nil {
		fmt.Fprintln(a.out, "Sync failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Sync done")
}

func (a *App) showStatus(ctx context.Context) {
	pending, err := a.queue.Count(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	fmt.Fprintf(a.out, "owner: %s\nonline: %v\npending mutations: %d\n",
		a.session.Owner(), a.engine.Online(), pending)

	for _, table := range a.config.Tables {
		n, err := a.store.Count(ctx, table)
		if err != nil {
			fmt.Fprintln(a.out, "error:", err)
			return
		}
		fmt.Fprintf(a.out, "%s: %d records\n", table, n)
	}
}

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: attach <path>")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	key, url, err := a.remote.PresignPut(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Presign failed:", err)
		return
	}
	if err := netx.UploadToPresignedURL(a.http, url, data); err != nil {
		fmt.Fprintln(a.out, "Upload failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Uploaded as", key)
}

func (a *App) fetch(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: fetch <key> <path>")
		return
	}
	url, err := a.remote.PresignGet(ctx, args[0])
	if err != nil {
		fmt.Fprintln(a.out, "Presign failed:", err)
		return
	}
	data, err := netx.DownloadFromPresignedURL(a.http, url)
	if err != nil {
		fmt.Fprintln(a.out, "Download failed:", err)
		return
	}
	if err := os.WriteFile(filepath.Clean(args[1]), data, 0o600); err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	fmt.Fprintln(a.out, "Saved to", args[1])
}
