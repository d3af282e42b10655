package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standard := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	mux := pat.New()

	// auth
	mux.Post("/api/users/signup", http.HandlerFunc(app.userHandler.SignUp))
	mux.Post("/api/users/signin", http.HandlerFunc(app.userHandler.SignIn))
	mux.Post("/api/users/refresh", http.HandlerFunc(app.userHandler.RefreshSession))
	mux.Get("/api/users/:id", app.requireRole("customer", http.HandlerFunc(app.userHandler.GetUser)))
	mux.Post("/api/users/:id/certificate", app.requireRole("translator", http.HandlerFunc(app.userHandler.UploadCertificate)))

	// bookings, literal paths registered before :id
	mux.Get("/api/jobs/history", app.requireRole("customer", http.HandlerFunc(app.jobHandler.History)))
	mux.Get("/api/jobs", app.requireRole("customer", http.HandlerFunc(app.jobHandler.ListJobs)))
	mux.Post("/api/jobs", app.requireRole("customer", http.HandlerFunc(app.jobHandler.StoreJob)))
	mux.Post("/api/jobs/email", http.HandlerFunc(app.jobHandler.ImmediateJobEmail))
	mux.Post("/api/jobs/accept", app.requireRole("translator", http.HandlerFunc(app.jobHandler.AcceptJob)))
	mux.Post("/api/jobs/cancel", app.requireRole("customer", http.HandlerFunc(app.jobHandler.CancelJob)))
	mux.Post("/api/jobs/end", app.requireRole("translator", http.HandlerFunc(app.jobHandler.EndJob)))
	mux.Post("/api/jobs/customer-not-call", app.requireRole("translator", http.HandlerFunc(app.jobHandler.CustomerNotCall)))
	mux.Post("/api/jobs/reopen", app.requireRole("admin", http.HandlerFunc(app.jobHandler.ReopenJob)))
	mux.Post("/api/jobs/distancefeed", app.requireRole("admin", http.HandlerFunc(app.distanceHandler.Feed)))
	mux.Post("/api/jobs/resend-notifications", app.requireRole("admin", http.HandlerFunc(app.jobHandler.ResendNotifications)))
	mux.Post("/api/jobs/resend-sms", app.requireRole("admin", http.HandlerFunc(app.jobHandler.ResendSMS)))
	mux.Post("/api/jobs/:id/accept", app.requireRole("translator", http.HandlerFunc(app.jobHandler.AcceptJobWithID)))
	mux.Get("/api/jobs/:id", app.requireRole("customer", http.HandlerFunc(app.jobHandler.GetJob)))
	mux.Put("/api/jobs/:id", app.requireRole("admin", http.HandlerFunc(app.jobHandler.UpdateJob)))

	// push tokens
	mux.Post("/api/fcm/token", http.HandlerFunc(app.fcmHandler.CreateToken))
	mux.Del("/api/fcm/token/:token", http.HandlerFunc(app.fcmHandler.DeleteToken))

	// live job offers
	mux.Get("/ws", http.HandlerFunc(app.WebSocketHandler))

	return standard.Then(mux)
}
