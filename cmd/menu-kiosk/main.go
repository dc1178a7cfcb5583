package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creperie-promo/internal/access"
	"creperie-promo/internal/apiclient"
	"creperie-promo/internal/config"
	"creperie-promo/internal/domain"
	"creperie-promo/internal/kvstore"
	"creperie-promo/internal/observability"
)

// The kiosk is the in-restaurant terminal: guests type the weekly code
// (or staff their password) to reveal the secret menu. All access
// decisions run through the same controller the web frontend uses, with
// a file-backed store so an unlocked kiosk survives restarts.
func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting menu kiosk")

	apiURL := os.Getenv("PROMO_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:" + cfg.Port
	}
	client := apiclient.NewClient(apiURL)

	statePath := os.Getenv("KIOSK_STATE_FILE")
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		statePath = filepath.Join(home, ".menu-kiosk", "state.json")
	}

	store, err := kvstore.NewFile(statePath)
	if err != nil {
		slog.Error("failed to open state file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	controller := access.NewController(client, client, client, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
	controller.CheckAccess(checkCtx)
	checkCancel()

	// Idle kiosks re-check periodically so the 30 minute window
	// actually locks the screen.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, tickCancel := context.WithTimeout(ctx, 10*time.Second)
				controller.CheckAccess(tickCtx)
				tickCancel()
			}
		}
	}()

	printStatus(controller.Snapshot())
	fmt.Println(`Commands: status, code <CODE>, admin <password>, quiz <email> <phone> <name>, menu, lock, quit`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		cmdCtx, cmdCancel := context.WithTimeout(ctx, 15*time.Second)
		switch cmd {
		case "status":
			controller.CheckAccess(cmdCtx)
			printStatus(controller.Snapshot())

		case "code":
			if len(args) != 1 {
				fmt.Println("usage: code <CODE>")
				break
			}
			if controller.VerifyCode(cmdCtx, args[0]) {
				fmt.Println("Secret menu unlocked.")
			} else {
				fmt.Println("That code did not work.")
			}

		case "admin":
			if len(args) != 1 {
				fmt.Println("usage: admin <password>")
				break
			}
			if controller.VerifyAdminAccess(cmdCtx, args[0]) {
				fmt.Println("Admin access enabled.")
			} else {
				fmt.Println("Invalid password.")
			}

		case "quiz":
			if len(args) != 3 {
				fmt.Println("usage: quiz <email> <phone> <name>")
				break
			}
			secretCode := ""
			if active, err := client.GetActive(cmdCtx); err == nil {
				secretCode = active.SecretCode
			}
			if _, ok := controller.GrantAccessFromQuiz(cmdCtx, args[0], args[1], args[2], secretCode); ok {
				fmt.Println("Consolation access granted.")
			} else {
				fmt.Println("Could not grant access, try again later.")
			}

		case "menu":
			showMenu(cmdCtx, client, controller.Snapshot())

		case "lock":
			controller.RevokeAccess()
			fmt.Println("Locked.")

		case "quit", "exit":
			cmdCancel()
			slog.Info("menu kiosk stopped")
			return

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
		cmdCancel()
	}

	slog.Info("menu kiosk stopped")
}

func printStatus(s access.State) {
	switch {
	case s.IsAdminAccess:
		fmt.Println("Status: unlocked (admin)")
	case s.HasAccess:
		fmt.Printf("Status: unlocked (code %s)\n", s.SecretCode)
	default:
		fmt.Println("Status: locked")
	}
}

func showMenu(ctx context.Context, client *apiclient.Client, s access.State) {
	items, err := client.ListPublic(ctx)
	if err != nil {
		fmt.Println("Menu unavailable, try again later.")
		slog.Warn("failed to fetch public menu", slog.String("error", err.Error()))
		return
	}
	fmt.Println("-- Menu --")
	printItems(items)

	if !s.HasAccess {
		return
	}
	if s.IsAdminAccess {
		// The admin sentinel never exists server-side, so there is no
		// token to authorize the secret menu fetch with.
		fmt.Println("-- Secret menu available on the staff dashboard --")
		return
	}

	secret, err := client.ListSecret(ctx, s.AccessToken)
	if err != nil {
		fmt.Println("Secret menu unavailable, try again later.")
		slog.Warn("failed to fetch secret menu", slog.String("error", err.Error()))
		return
	}
	fmt.Println("-- Secret menu --")
	printItems(secret)
}

func printItems(items []*domain.MenuItem) {
	for _, item := range items {
		fmt.Printf("  %-24s %6.2f EUR  %s\n", item.Name, float64(item.PriceCents)/100, item.Description)
	}
}
