package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/cropcare/admin"
	"github.com/krishkalaria12/cropcare/auth"
	"github.com/krishkalaria12/cropcare/database"
	"github.com/krishkalaria12/cropcare/diagnosis"
	handler "github.com/krishkalaria12/cropcare/handlers"
	"github.com/krishkalaria12/cropcare/router"
	"github.com/krishkalaria12/cropcare/service"
	"github.com/krishkalaria12/cropcare/session"
	"github.com/krishkalaria12/cropcare/ttlstore"
	"github.com/spf13/cobra"
)

const (
	sessionTTL      = 24 * time.Hour
	cookieTTL       = 7 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := database.Migrate(a.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.log.Info("Migrations complete")
		return nil
	},
}

var reapCmd = &cobra.Command{
	Use:   "reap-orphans",
	Short: "Delete stored images no scan record references",
	RunE:  runReap,
}

var bucketPublicCmd = &cobra.Command{
	Use:   "bucket-public",
	Short: "Grant public read access on the image bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.gcs == nil {
			return errors.New("bucket-public requires STORAGE_DRIVER=gcs")
		}
		if err := a.gcs.MakeBucketPublic(cmd.Context()); err != nil {
			return err
		}
		a.log.Info("Bucket is now publicly readable", "bucket", a.cfg.GCSBucketName)
		return nil
	},
}

func init() {
	reapCmd.Flags().Bool("dry-run", false, "report orphans without deleting them")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := database.Migrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sessions := session.NewProvider()
	unsubAudit := sessions.Subscribe(func(e session.Event) {
		a.log.Info("Session changed", "event", e.Kind, "user_id", e.Identity.UserID, "email", e.Identity.Email)
	})
	defer unsubAudit()

	var keys ttlstore.Store
	if a.cfg.RedisAddr != "" {
		rs, err := ttlstore.NewRedis(a.cfg.RedisAddr, "cropcare:")
		if err != nil {
			return err
		}
		defer rs.Close()
		keys = rs
	} else {
		keys = ttlstore.NewMemory()
	}
	if a.cfg.AdminPIN == "" {
		a.log.Warn("ADMIN_PIN not set, admin panel is disabled")
	}

	authSvc := auth.NewService(a.db, sessions, a.log, auth.Options{
		Secret:         a.cfg.JWTSecret,
		URL:            a.cfg.AppURL,
		TokenDuration:  sessionTTL,
		CookieDuration: cookieTTL,
		Revoked:        keys,
	})
	images := service.NewImageService(a.db, a.store, a.log, service.ImageOptions{
		UploadPath:     a.cfg.UploadPath,
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		MaxDimension:   a.cfg.ImageMaxDimension,
	})
	diagnoses := service.NewDiagnosisService(a.db, images, diagnosis.NewMockClassifier(nil), a.log)
	gate := admin.NewGate(a.cfg.AdminPIN, keys, sessionTTL, service.NewStatsService(a.db), a.log)
	unsubGate := gate.Watch(sessions)
	defer unsubGate()

	h := handler.New(handler.Deps{
		Auth:          authSvc,
		Images:        images,
		Diagnoses:     diagnoses,
		Gate:          gate,
		Log:           a.log,
		SecureCookies: a.cfg.IsProduction(),
		CookieTTL:     cookieTTL,
	})

	server := fiber.New(fiber.Config{
		AppName: "cropcare",
		// multipart overhead on top of the largest accepted image
		BodyLimit: int(a.cfg.MaxUploadBytes) + 1<<20,
	})

	routeOpts := router.Options{AccessLog: true}
	if a.local != nil {
		routeOpts.UploadsDir = a.local.Dir()
	}
	router.SetupRoutes(server, h, authSvc, routeOpts)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server is listening", "port", a.cfg.Port)
		errCh <- server.Listen(":" + a.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

func runReap(cmd *cobra.Command, args []string) error {
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	reaper, err := service.NewReaper(a.db, a.store, a.log, a.cfg.UploadPath, a.cfg.OrphanGrace)
	if err != nil {
		return err
	}
	report, err := reaper.Run(cmd.Context(), dryRun)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
