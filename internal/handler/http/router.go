package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries the settings the router needs outside the handlers
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(
	opts RouterOptions,
	payrollHandler PayrollHandler,
	employeeHandler EmployeeHandler,
	timesheetHandler TimesheetHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
		// Probes and scrapes would drown the request log
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/health" || req.URL.Path == "/metrics"
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/payroll", func(r chi.Router) {
		r.With(chiMiddleware.AllowContentType("application/json")).Group(func(r chi.Router) {
			r.Post("/run", payrollHandler.CreateRun)
			r.Post("/calc", payrollHandler.CalculateRun)
			r.Post("/approve", payrollHandler.ApproveRun)
			r.Post("/pay", payrollHandler.PayRun)
			r.Post("/export", payrollHandler.ExportRun)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", payrollHandler.ListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", payrollHandler.GetRun)
				r.Get("/exports", payrollHandler.ListExports)
				r.Get("/exports/{exportID}/{artifact}", payrollHandler.DownloadArtifact)
			})
		})
	})

	r.Route("/employees", func(r chi.Router) {
		r.Route("/timesheet", func(r chi.Router) {
			r.Get("/", timesheetHandler.ListEntries)
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/", timesheetHandler.AppendEntry)
			r.With(chiMiddleware.AllowContentType("text/csv")).Post("/import", timesheetHandler.ImportCSV)
		})

		r.Get("/", employeeHandler.ListEmployees)
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/", employeeHandler.CreateEmployee)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", employeeHandler.GetEmployee)
			r.With(chiMiddleware.AllowContentType("application/json")).Put("/", employeeHandler.UpdateEmployee)
		})
	})

	return r
}
