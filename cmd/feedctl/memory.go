package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/anonto42/buddyfeed/internal/bootstrap"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/router"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/anonto42/buddyfeed/internal/session"
	"github.com/anonto42/buddyfeed/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Demo account seeded into the in-memory server.
const (
	demoEmail    = "demo@buddyfeed.local"
	demoPassword = "demo-password"
)

// memoryServer serves the API on a loopback port from an in-memory runtime, so the
// client can be tried without any backend.
type memoryServer struct {
	rt  *bootstrap.Runtime
	srv *http.Server
	URL string
}

func startMemoryServer(ctx context.Context) (*memoryServer, error) {
	rt := bootstrap.NewMemoryRuntime(uuid.NewString())
	if err := seedDemo(ctx, rt); err != nil {
		rt.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	router.SetupRoutes(e, rt, session.NewGuard(""))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		rt.Close()
		return nil, err
	}
	srv := &http.Server{Handler: e, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("memory server: %v", err)
		}
	}()
	return &memoryServer{rt: rt, srv: srv, URL: "http://" + lis.Addr().String()}, nil
}

// seedDemo registers the demo account and gives it a welcome post.
func seedDemo(ctx context.Context, rt *bootstrap.Runtime) error {
	user, err := services.NewAccountService(rt.Provider, rt.Users).Register(ctx, models.RegisterRequest{
		FirstName:       "Demo",
		LastName:        "User",
		Email:           demoEmail,
		Password:        demoPassword,
		ConfirmPassword: demoPassword,
	})
	if err != nil {
		return fmt.Errorf("seed demo account: %w", err)
	}
	author := &models.Identity{UID: user.UID, DisplayName: user.FullName(), Email: user.Email}
	_, err = services.NewComposer(rt.Posts, rt.Images).Submit(ctx, author, services.SubmitPostInput{
		Content:    "Welcome to buddyfeed",
		Visibility: string(models.VisibilityPublic),
	})
	if err != nil {
		return fmt.Errorf("seed demo post: %w", err)
	}
	return nil
}

func (m *memoryServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
	m.rt.Close()
}

// tailMemory signs the demo account in to a fresh in-memory server and tails its feed.
func tailMemory(ctx context.Context, out io.Writer) error {
	ms, err := startMemoryServer(ctx)
	if err != nil {
		return err
	}
	defer ms.Close()

	api := newAPIClient(ms.URL)
	creds, err := api.login(ctx, demoEmail, demoPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "in-memory server at %s (%s / %s)\n", ms.URL, demoEmail, demoPassword)
	return tail(ctx, api, creds.Token, session.NewGuard(""), out)
}
