package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/logger"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// envelope is the portal's response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

func main() {
	cfg := config.Load()

	var portalURL string
	flag.StringVar(&portalURL, "portal", "http://localhost:"+cfg.ServerPort, "Portal base URL")
	flag.Parse()

	log := logger.SetupTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	portal := backend.New(strings.TrimRight(portalURL, "/")+"/api/v1", 30*time.Second, log)

	token, err := login(ctx, portal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = portal.Request(context.Background(), token, http.MethodPost, "/auth/logout", nil, nil)
	}()

	switch args[0] {
	case "list":
		err = list(ctx, portal, token)
	case "retry":
		if len(args) < 2 {
			printUsage()
			return
		}
		err = act(ctx, portal, token, "/admin/checkouts/"+args[1]+"/retry", nil)
	case "resolve":
		if len(args) < 3 {
			printUsage()
			return
		}
		err = act(ctx, portal, token, "/admin/checkouts/"+args[1]+"/resolve",
			model.ResolveCheckoutRequest{Note: strings.Join(args[2:], " ")})
	default:
		printUsage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// login prompts for admin credentials and returns a portal token.
func login(ctx context.Context, portal *backend.Client) (string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Admin Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	var resp envelope[service.LoginResult]
	req := model.LoginRequest{Email: email, Password: string(bytePassword)}
	if err := portal.Request(ctx, "", http.MethodPost, "/auth/login", req, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.Data.Role != model.RoleAdmin {
		return "", fmt.Errorf("%s is not an admin", email)
	}
	return resp.Data.AccessToken, nil
}

func list(ctx context.Context, portal *backend.Client, token string) error {
	var resp envelope[struct {
		Checkouts []model.Checkout `json:"checkouts"`
	}]
	if err := portal.Request(ctx, token, http.MethodGet, "/admin/checkouts/unreconciled", nil, &resp); err != nil {
		return err
	}
	if len(resp.Data.Checkouts) == 0 {
		fmt.Println("No unreconciled checkouts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tUSER\tKIND\tAMOUNT\tATTEMPTS\tLAST ERROR")
	for _, c := range resp.Data.Checkouts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d.%02d\t%d\t%s\n",
			c.ID, c.Status, c.UserID, c.Kind, c.AmountCents/100, c.AmountCents%100, c.Attempts, c.LastError)
	}
	return w.Flush()
}

// act posts an operator action and prints the resulting status.
// A 202 from retry means the entitlement failed again and stays queued.
func act(ctx context.Context, portal *backend.Client, token, endpoint string, body interface{}) error {
	var resp envelope[model.Checkout]
	err := portal.Request(ctx, token, http.MethodPost, endpoint, body, &resp)
	if err != nil {
		return err
	}
	fmt.Printf("Checkout %s is now %s\n", resp.Data.ID, resp.Data.Status)
	if resp.Data.LastError != "" && resp.Data.Status != model.CheckoutStatusApplied {
		fmt.Printf("Last error: %s\n", resp.Data.LastError)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: reconcile [flags] <command>")
	fmt.Println("Commands:")
	fmt.Println("  list                 List checkouts charged without entitlement")
	fmt.Println("  retry <id>           Apply the entitlement again with your admin session")
	fmt.Println("  resolve <id> <note>  Close a checkout by hand")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
