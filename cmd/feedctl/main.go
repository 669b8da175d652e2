// Command feedctl signs in to a buddyfeed server, tails its live feed and runs
// maintenance against the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anonto42/buddyfeed/internal/bootstrap"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/anonto42/buddyfeed/internal/session"
	"github.com/anonto42/buddyfeed/pkg/config"
)

const usage = `usage: feedctl <command> [flags]

commands:
  login    -email -password   sign in and print a session token
  tail     -token | -memory   print the live feed
  recount  -post              repair a post's comment count`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, os.Args[2:])
	case "tail":
		err = runTail(ctx, os.Args[2:], os.Stdout)
	case "recount":
		err = runRecount(ctx, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("feedctl %s: %v", os.Args[1], err)
	}
}

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "API server URL")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	creds, err := newAPIClient(*server).login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Println(creds.Token)
	return nil
}

func runTail(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "API server URL")
	token := fs.String("token", os.Getenv("BUDDYFEED_TOKEN"), "session token (default $BUDDYFEED_TOKEN)")
	memory := fs.Bool("memory", false, "serve an in-memory store with a demo account instead of -server")
	_ = fs.Parse(args)

	if *memory {
		return tailMemory(ctx, out)
	}
	api := newAPIClient(*server)
	return tail(ctx, api, *token, session.NewGuard(""), out)
}

func tail(ctx context.Context, api *apiClient, token string, guard session.Guard, out io.Writer) error {
	provider := session.NewProvider(&remoteSession{api: api, token: token})
	provider.Start()
	defer provider.Close()

	if _, err := provider.Wait(ctx); err != nil {
		return err
	}
	decision, redirect := guard.Evaluate(provider.State())
	if decision != session.Authorized {
		return fmt.Errorf("not signed in (%s %s): run feedctl login first", decision, redirect)
	}
	viewer := provider.Current()
	fmt.Fprintf(out, "signed in as %s\n", viewer.DisplayName)

	conn, err := api.dialFeed(ctx, token)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var posts []models.PostView
		if err := readFrame(conn, &posts); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		printFeed(out, posts)
	}
}

func printFeed(out io.Writer, posts []models.PostView) {
	fmt.Fprintf(out, "--- %d posts ---\n", len(posts))
	for _, p := range posts {
		liked := ""
		if p.IsLiked {
			liked = " (liked)"
		}
		content := strings.ReplaceAll(p.Content, "\n", " ")
		fmt.Fprintf(out, "%s  %s [%s]: %s  likes=%d%s comments=%d\n",
			p.CreatedAt.Local().Format(time.DateTime), p.AuthorName, p.Visibility,
			content, p.LikesCount, liked, p.CommentsCount)
	}
}

func runRecount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recount", flag.ExitOnError)
	postID := fs.String("post", "", "post id")
	_ = fs.Parse(args)
	if *postID == "" {
		return fmt.Errorf("-post is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	count, err := services.NewThreadService(rt.Posts, rt.Comments).Recount(ctx, *postID)
	if err != nil {
		return err
	}
	log.Printf("post %s now has comments_count=%d", *postID, count)
	return nil
}
