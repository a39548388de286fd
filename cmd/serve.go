package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/resilience"
	"github.com/sells-group/risk-analyzer/internal/scan"
	"github.com/sells-group/risk-analyzer/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scanning HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScanEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := &server{
			svc:      env.Service,
			store:    env.Store,
			breakers: env.Breakers,
			maxImage: cfg.QR.MaxImageBytes,
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// scanner is the scan surface the HTTP API exposes.
type scanner interface {
	ScanURL(ctx context.Context, raw string) (*model.ScanResult, error)
	ScanEmail(ctx context.Context, text string) (*model.ScanResult, error)
	ScanBulk(ctx context.Context, urls []string) (*model.BulkResult, error)
	ScanQR(ctx context.Context, image []byte) (*model.ScanResult, error)
}

type server struct {
	svc      scanner
	store    store.Store
	breakers *resilience.Registry
	maxImage int64
}

func (s *server) routes(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.health)
	r.Get("/health", s.health)

	r.Route("/scan", func(r chi.Router) {
		r.Post("/url", s.scanURL)
		r.Post("/email", s.scanEmail)
		r.Post("/bulk", s.scanBulk)
		r.Post("/qr", s.scanQR)
	})

	r.Route("/scans", func(r chi.Router) {
		r.Get("/", s.listScans)
		r.Get("/stats", s.scanStats)
		r.Get("/{id}", s.getScan)
	})
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok", "service": "risk-analyzer-api"}
	if s.breakers != nil {
		body["breakers"] = s.breakers.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) scanURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.ScanURL(r.Context(), req.URL)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) scanEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.ScanEmail(r.Context(), req.Content)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) scanBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.ScanBulk(r.Context(), req.URLs)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// multipartOverhead allows for form boundaries around the image part.
const multipartOverhead = 1 << 20

func (s *server) scanQR(w http.ResponseWriter, r *http.Request) {
	limit := s.maxImage
	if limit <= 0 {
		limit = scan.DefaultMaxImageBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Image too large (max %dMB)", limit>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close() //nolint:errcheck

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		writeError(w, http.StatusUnprocessableEntity, "File must be an image (PNG, JPG, etc.)")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	res, err := s.svc.ScanQR(r.Context(), data)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) listScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ScanFilter{
		Label:    model.Label(q.Get("label")),
		ScanType: model.ScanType(q.Get("type")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	recs, err := s.store.ListScans(r.Context(), filter)
	if err != nil {
		zap.L().Error("list scans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list scans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": recs, "count": len(recs)})
}

func (s *server) scanStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("scan stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) getScan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetScan(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		zap.L().Error("get scan", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load scan")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeScanError maps validation failures to 422 and anything else to 500.
func writeScanError(w http.ResponseWriter, err error) {
	var ve *scan.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusUnprocessableEntity, ve.Reason)
		return
	}
	zap.L().Error("scan failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Scan failed: "+err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
