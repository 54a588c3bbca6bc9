package api

import (
	"net/http"

	_ "github.com/AlexZinkM/exam-admin/docs"
	"github.com/AlexZinkM/exam-admin/internal/handler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(examHandler *handler.ExamHandler, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Sessions
	mux.HandleFunc("POST /sessions", examHandler.CreateSession)
	mux.HandleFunc("GET /sessions/{id}", examHandler.GetSession)
	mux.HandleFunc("DELETE /sessions/{id}", examHandler.DeleteSession)
	mux.HandleFunc("POST /sessions/{id}/connect", examHandler.Connect)

	// Papers
	mux.HandleFunc("PUT /sessions/{id}/paper", examHandler.UpdatePaper)
	mux.HandleFunc("POST /sessions/{id}/exam-time", examHandler.SetExamTime)
	mux.HandleFunc("POST /sessions/{id}/approve", examHandler.ApprovePaper)
	mux.HandleFunc("POST /sessions/{id}/paper-reference", examHandler.UploadPaperReference)
	mux.HandleFunc("POST /sessions/{id}/upload", examHandler.UploadFile)
	mux.HandleFunc("GET /sessions/{id}/papers/{paperId}", examHandler.GetPaper)
	mux.HandleFunc("GET /sessions/{id}/contract", examHandler.GetContract)

	// Storage
	mux.HandleFunc("GET /storage/status", examHandler.StorageStatus)

	return mux
}
