package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/and161185/fittrack/internal/convert"
	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

// --- auth ---

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req convert.SignupRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	u, tok, err := s.auth.Signup(r.Context(), req.ToSignup())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAuthResponse(u, tok))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req convert.LoginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	tok, u, err := s.auth.LoginWithIP(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			if s.metrics != nil {
				s.metrics.CounterLoginFailures.Inc()
			}
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAuthResponse(u, tok))
}

// --- user ---

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	p, err := s.auth.Profile(r.Context(), callerID(r), id)
	if err != nil {
		s.writeError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, convert.ToProfile(p.User, p.BMI))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	var req convert.ProfileUpdateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	u, err := s.auth.UpdateProfile(r.Context(), callerID(r), id, req.ToUserPatch())
	if err != nil {
		s.writeError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUser(u))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := ownPath(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	exp, err := s.workouts.Export(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "User not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="fittrack-export-`+strconv.FormatInt(id, 10)+`.json"`)
	writeJSON(w, http.StatusOK, convert.ToExport(exp.User, exp.Workouts, exp.ExportDate))
}

// --- workouts ---

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req convert.WorkoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	nw, err := req.ToNewWorkout()
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	created, err := s.workouts.Create(r.Context(), callerID(r), nw)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	uid, err := ownPath(r, "userId")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	q := r.URL.Query()
	f := model.WorkoutFilter{
		Type:     model.WorkoutType(q.Get("type")),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}
	ws, err := s.workouts.List(r.Context(), uid, f)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if ws == nil {
		ws = []model.Workout{}
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	wk, err := s.workouts.Get(r.Context(), callerID(r), id)
	if err != nil {
		s.writeError(w, r, err, "Workout not found")
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	var req convert.WorkoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	wk, err := s.workouts.Update(r.Context(), callerID(r), id, req.ToWorkoutPatch())
	if err != nil {
		s.writeError(w, r, err, "Workout not found")
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if err := s.workouts.Delete(r.Context(), callerID(r), id); err != nil {
		s.writeError(w, r, err, "Workout not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- stats ---

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, err := s.workouts.Summary(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	days, err := s.workouts.Weekly(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	months := 0
	if v := q.Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errMonths, "")
			return
		}
		months = n
	}
	series, err := s.workouts.Monthly(r.Context(), callerID(r), months, model.WorkoutType(q.Get("type")))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

var errMonths = fmt.Errorf("%w: months must be an integer", errs.ErrValidation)

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	shares, err := s.workouts.Distribution(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, shares)
}
