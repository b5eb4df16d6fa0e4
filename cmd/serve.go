package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/catalog"
	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/research"
	"github.com/linkmill/partners-cli/internal/selection"
	"github.com/linkmill/partners-cli/internal/store"
	"github.com/linkmill/partners-cli/pkg/coupang"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serves product search, deep link conversion, and research runs over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initCoupang()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch, err := initOrchestrator(research.NopNotifier{})
		if err != nil {
			return err
		}

		api := &apiServer{
			coupang: client,
			store:   st,
			orch:    orch,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
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

// apiServer bundles the dependencies shared by the HTTP handlers.
type apiServer struct {
	coupang coupang.Client
	store   store.Store
	orch    *research.Orchestrator
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/category/{categoryID}", s.handleCategory)
		r.Post("/deeplink", s.handleDeepLink)
		r.Post("/research", s.handleResearch)
		r.Get("/runs", s.handleRunsList)
		r.Get("/runs/{projectID}", s.handleRunShow)
		r.Get("/results/{projectID}", s.handleResults)
	})
	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	data, err := s.coupang.Search(r.Context(), keyword, queryInt(r, "limit", 20))
	if err != nil {
		zap.L().Error("search failed", zap.String("keyword", keyword), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	products := catalog.ParseListings(data)
	for i := range products {
		products[i].Keyword = keyword
	}
	products = catalog.Filter(products, catalog.FilterOptions{
		RocketOnly: queryBool(r, "rocket"),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"keyword": keyword,
		"groups":  catalog.Group(products),
	})
}

func (s *apiServer) handleCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")

	data, err := s.coupang.BestCategory(r.Context(), categoryID, queryInt(r, "limit", 20))
	if err != nil {
		zap.L().Error("category fetch failed", zap.String("category", categoryID), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	products := catalog.Filter(catalog.ParseListings(data), catalog.FilterOptions{
		RocketOnly:     queryBool(r, "rocket"),
		PriceFiltering: true,
		MinPrice:       int64(queryInt(r, "min_price", 0)),
		MaxPrice:       int64(queryInt(r, "max_price", 0)),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"category": categoryID,
		"groups":   catalog.Group(products),
	})
}

func (s *apiServer) handleDeepLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	links, err := s.coupang.DeepLink(r.Context(), req.URLs)
	if err != nil {
		zap.L().Error("deep link conversion failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (s *apiServer) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword  string   `json:"keyword"`
		Category string   `json:"category"`
		IDs      []string `json:"ids"`
		Limit    int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keyword == "" && req.Category == "" {
		writeError(w, http.StatusBadRequest, "keyword or category is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	var (
		data []byte
		err  error
	)
	if req.Keyword != "" {
		data, err = s.coupang.Search(r.Context(), req.Keyword, req.Limit)
	} else {
		data, err = s.coupang.BestCategory(r.Context(), req.Category, req.Limit)
	}
	if err != nil {
		zap.L().Error("research source fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	products := catalog.ParseListings(data)
	for i := range products {
		products[i].Keyword = req.Keyword
	}

	items := make([]selection.Item, 0, len(products))
	flat := catalog.Flatten(catalog.Group(products))
	for i := range flat {
		items = append(items, selection.ProductItem(&flat[i]))
	}

	sel := selection.NewSet()
	if len(req.IDs) > 0 {
		for _, id := range req.IDs {
			sel.Add(id)
		}
	} else {
		sel.ToggleAll(selection.AllIDs(items))
	}

	picked := selection.Resolve(sel, items)
	if err := selection.Guard(picked); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.orch.Running() {
		writeError(w, http.StatusConflict, research.ErrAlreadyRunning.Error())
		return
	}

	targets := selection.Products(picked)

	// Detach from the request context so the run survives the response.
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		run, runErr := s.orch.Run(runCtx, targets)
		if run != nil {
			if saveErr := s.store.SaveRun(runCtx, run); saveErr != nil {
				zap.L().Error("failed to save run", zap.String("project", run.ProjectID), zap.Error(saveErr))
			}
		}
		if runErr != nil {
			zap.L().Error("research run failed", zap.Error(runErr))
			return
		}
		zap.L().Info("research run complete",
			zap.String("project", run.ProjectID),
			zap.Int("succeeded", run.Succeeded),
			zap.Int("failed", run.Failed),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"items":  len(targets),
	})
}

func (s *apiServer) handleRunsList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) handleRunShow(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *apiServer) handleResults(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.Handoff{ProjectID: run.ProjectID, Packs: run.Packs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return def
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
