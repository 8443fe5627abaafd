// internal/app/features/authapi/register.go
package authapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/activitylog"
	"github.com/dalemusser/researchportal/internal/app/system/apierr"
	"github.com/dalemusser/researchportal/internal/app/system/authutil"
	"github.com/dalemusser/researchportal/internal/app/system/inputval"
	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/metrics"
	"github.com/dalemusser/researchportal/internal/app/system/normalize"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
)

type registerRequest struct {
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`

	// faculty
	FacultyID      string `json:"facultyId"`
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
	DateOfJoining  string `json:"dateOfJoining"`
	DateOfBirth    string `json:"dateOfBirth"`

	// student
	RegistrationNumber string     `json:"registrationNumber"`
	Year               flexString `json:"year"`
	CGPA               *float64   `json:"cgpa"`

	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

// flexString accepts a JSON string or number. Clients send the student
// year both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type accountFormat struct {
	FirstName string `json:"firstName" validate:"max=100" label:"First name"`
	LastName  string `json:"lastName" validate:"max=100" label:"Last name"`
	Email     string `json:"email" validate:"email,max=254" label:"Email"`
}

type facultyFormat struct {
	FacultyID      string `json:"facultyId" validate:"max=64" label:"Faculty ID"`
	Department     string `json:"department" validate:"max=120" label:"Department"`
	Specialization string `json:"specialization" validate:"max=200" label:"Specialization"`
	DateOfJoining  string `json:"dateOfJoining" validate:"isodate" label:"Date of joining"`
	DateOfBirth    string `json:"dateOfBirth" validate:"isodate" label:"Date of birth"`
}

type studentFormat struct {
	RegistrationNumber string   `json:"registrationNumber" validate:"max=64" label:"Registration number"`
	Department         string   `json:"department" validate:"max=120" label:"Department"`
	Year               string   `json:"year" validate:"max=16" label:"Year"`
	CGPA               *float64 `json:"cgpa" validate:"cgpa" label:"CGPA"`
}

// validate checks presence in a fixed order (universal fields, then role,
// then the role's fields) and then formats. It touches no storage.
func (req *registerRequest) validate() *apierr.Error {
	if fe := inputval.Missing(
		inputval.Str("role", req.Role),
		inputval.Str("firstName", req.FirstName),
		inputval.Str("lastName", req.LastName),
		inputval.Str("email", req.Email),
		inputval.Str("password", req.Password),
	); fe != nil {
		return apierr.Validation(fe.Field, fe.Message)
	}

	req.Role = normalize.Role(req.Role)
	var format any
	switch req.Role {
	case models.RoleFaculty:
		if fe := inputval.Missing(
			inputval.Str("facultyId", req.FacultyID),
			inputval.Str("department", req.Department),
			inputval.Str("specialization", req.Specialization),
			inputval.Str("dateOfJoining", req.DateOfJoining),
			inputval.Str("dateOfBirth", req.DateOfBirth),
		); fe != nil {
			return apierr.Validation(fe.Field, fe.Message)
		}
		format = facultyFormat{
			FacultyID:      req.FacultyID,
			Department:     req.Department,
			Specialization: req.Specialization,
			DateOfJoining:  strings.TrimSpace(req.DateOfJoining),
			DateOfBirth:    strings.TrimSpace(req.DateOfBirth),
		}
	case models.RoleStudent:
		if fe := inputval.Missing(
			inputval.Str("registrationNumber", req.RegistrationNumber),
			inputval.Str("department", req.Department),
			inputval.Str("year", string(req.Year)),
			inputval.Ptr("cgpa", req.CGPA),
		); fe != nil {
			return apierr.Validation(fe.Field, fe.Message)
		}
		format = studentFormat{
			RegistrationNumber: req.RegistrationNumber,
			Department:         req.Department,
			Year:               string(req.Year),
			CGPA:               req.CGPA,
		}
	default:
		return apierr.Validation("role", "Role must be one of: "+strings.Join(models.AllRoles(), ", "))
	}

	email := normalize.Email(req.Email)
	if res := inputval.Validate(accountFormat{FirstName: req.FirstName, LastName: req.LastName, Email: email}); res.HasErrors() {
		fe := res.Errors[0]
		return apierr.Validation(fe.Field, fe.Message)
	}
	if res := inputval.Validate(format); res.HasErrors() {
		fe := res.Errors[0]
		return apierr.Validation(fe.Field, fe.Message)
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		return apierr.Validation("password", err.Error())
	}
	return nil
}

func (req *registerRequest) account(hash string) (models.User, models.Profile) {
	u := models.User{
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if req.Role == models.RoleFaculty {
		return u, models.Profile{Faculty: &models.FacultyProfile{
			FacultyID:      strings.TrimSpace(req.FacultyID),
			Department:     normalize.Name(req.Department),
			Specialization: normalize.Name(req.Specialization),
			DateOfJoining:  strings.TrimSpace(req.DateOfJoining),
			DateOfBirth:    strings.TrimSpace(req.DateOfBirth),
		}}
	}
	return u, models.Profile{Student: &models.StudentProfile{
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		Department:         normalize.Name(req.Department),
		Year:               strings.TrimSpace(string(req.Year)),
		CGPA:               *req.CGPA,
	}}
}

// handleRegister creates a user with its role profile and signs it in.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, h.logger, apierr.Validation("", "Request body must be a JSON object"))
		return
	}
	if verr := req.validate(); verr != nil {
		apierr.Write(w, r, h.logger, verr)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "register")
	defer cancel()
	r = r.WithContext(ctx)

	// Read-then-write; the unique index on users.email catches the race.
	exists, err := h.userStore.EmailExists(ctx, req.Email)
	if err != nil {
		h.errLog.Log(r, "email pre-check failed", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	if exists {
		apierr.Write(w, r, h.logger, apierr.DuplicateEmail())
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	u, p := req.account(hash)
	user, profile, err := h.userStore.CreateWithProfile(ctx, u, p)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			apierr.Write(w, r, h.logger, apierr.DuplicateEmail())
			return
		}
		h.errLog.Log(r, "failed to create user", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}
	metrics.Registrations.WithLabelValues(user.Role).Inc()

	_, _ = h.recorder.Record(ctx, activitylog.Attempt{
		Event:   activitylog.EventRegister,
		UserID:  &user.ID,
		Email:   user.Email,
		Client:  activitylog.ClientFrom(r, req.IPAddress, req.UserAgent),
		Success: true,
	})

	if _, err := h.sessionMgr.Issue(w, user); err != nil {
		h.errLog.Log(r, "failed to mint session token", err)
		apierr.Write(w, r, h.logger, apierr.Internal(err))
		return
	}

	jsonutil.Created(w, "Registration successful", accountData{User: user, Profile: profile})
}
