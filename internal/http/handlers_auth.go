package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

type authForm struct {
	Username string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Register", Data: authForm{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", pageData{Title: "Register", Error: "Invalid form submission."})
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	form := authForm{Username: username}

	if password != r.PostForm.Get("confirm_password") && r.PostForm.Has("confirm_password") {
		s.render(w, r, http.StatusUnprocessableEntity, "register.html",
			pageData{Title: "Register", Error: "Passwords do not match.", Data: form})
		return
	}

	user, err := s.svc.Users.Register(ctx, username, password)
	if err != nil {
		logFailure(r, "Registration failed", err, log.OpRegister)
		s.render(w, r, statusFor(err), "register.html",
			pageData{Title: "Register", Error: userMessage(err), Data: form})
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "User registered",
		log.FieldComponent, log.ComponentAuth,
		log.FieldUserID, user.ID)

	if err := s.startSession(w, auth.Identity{UserID: user.ID, Username: user.Username}); err != nil {
		logFailure(r, "Failed to issue session", err, log.OpRegister)
		s.setFlash(w, "success", "Account created. Please log in.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setFlash(w, "success", "Welcome, "+user.Username+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Log in", Data: authForm{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", pageData{Title: "Log in", Error: "Invalid form submission."})
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	form := authForm{Username: username}

	user, err := s.svc.Users.Authenticate(ctx, username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
			log.FromContext(ctx).WarnContext(ctx, "Login failed",
				log.FieldComponent, log.ComponentAuth,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		} else {
			s.metrics.AuthFailures.WithLabelValues("error").Inc()
			logFailure(r, "Login error", err, log.OpLogin)
		}
		s.render(w, r, statusFor(err), "login.html", pageData{Title: "Log in", Error: userMessage(err), Data: form})
		return
	}

	if err := s.startSession(w, auth.Identity{UserID: user.ID, Username: user.Username}); err != nil {
		logFailure(r, "Failed to issue session", err, log.OpLogin)
		s.render(w, r, http.StatusInternalServerError, "login.html", pageData{Title: "Log in", Error: userMessage(err), Data: form})
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "User logged in",
		log.FieldComponent, log.ComponentAuth,
		log.FieldUserID, user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	s.setFlash(w, "info", "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
