package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vaifllc/youyesyou-core/flagstore"
	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/pipeline"
	"github.com/vaifllc/youyesyou-core/points"
	"github.com/vaifllc/youyesyou-core/store"
)

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type submissionRequest struct {
	UserID    string   `json:"userId"`
	Kind      string   `json:"kind"`
	Body      string   `json:"body"`
	ImageURLs []string `json:"imageUrls"`
}

type submissionResponse struct {
	Content   *store.Content `json:"content,omitempty"`
	Filtered  bool           `json:"filtered"`
	Issues    []string       `json:"issues,omitempty"`
	Points    int            `json:"points"`
	Level     string         `json:"level"`
	NewBadges []string       `json:"newBadges,omitempty"`
}

type rejectionResponse struct {
	Error     string     `json:"error"`
	Kind      string     `json:"kind,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Issues    []string   `json:"issues,omitempty"`
	Severity  int        `json:"severity,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

var validKinds = map[string]bool{
	string(moderation.KindPost):     true,
	string(moderation.KindComment):  true,
	string(moderation.KindMessage):  true,
	string(moderation.KindFeedback): true,
}

func (srv *Server) HandleSubmission(c echo.Context) error {
	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Body == "" || !validKinds[req.Kind] {
		return echo.NewHTTPError(http.StatusBadRequest, "userId, body, and a valid kind are required")
	}

	res, err := srv.pipeline.ProcessSubmission(c.Request().Context(), pipeline.Submission{
		UserID:    req.UserID,
		Kind:      moderation.ContentKind(req.Kind),
		Body:      req.Body,
		ImageURLs: req.ImageURLs,
	})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return err
	}

	if res.Rejected {
		if res.Rejection == pipeline.RejectPolicy {
			return c.JSON(http.StatusUnprocessableEntity, rejectionResponse{
				Error:    "policy-violation",
				Issues:   res.Issues,
				Severity: res.Severity,
			})
		}
		return c.JSON(http.StatusForbidden, rejectionResponse{
			Error:     "access-denied",
			Kind:      res.Rejection,
			Reason:    res.Reason,
			ExpiresAt: res.ExpiresAt,
		})
	}

	out := submissionResponse{
		Content:  res.Content,
		Filtered: res.Flagged,
		Issues:   res.Issues,
		Points:   res.PointsTotal,
		Level:    res.Level,
	}
	for _, b := range res.NewBadges {
		out.NewBadges = append(out.NewBadges, b.Name)
	}
	return c.JSON(http.StatusOK, out)
}

type identifierRequest struct {
	Identifier string `json:"identifier"`
}

func (srv *Server) HandleIdentifierCheck(c echo.Context) error {
	var req identifierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Identifier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identifier is required")
	}
	v := srv.pipeline.Gate.Engine.EvaluateIdentifier(c.Request().Context(), req.Identifier)
	return c.JSON(http.StatusOK, map[string]any{
		"allowed": !v.ShouldBlock,
		"issues":  v.Issues,
	})
}

type reviewRequest struct {
	Action    string `json:"action"`
	Moderator string `json:"moderator"`
	Notes     string `json:"notes"`
}

func (srv *Server) HandleReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	content, err := srv.pipeline.ReviewContent(c.Request().Context(), c.Param("id"),
		moderation.ReviewAction(req.Action), req.Moderator, req.Notes)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "content not found")
	} else if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, content)
}

func (srv *Server) HandleContentFlags(c echo.Context) error {
	flags, err := srv.flags.Get(c.Request().Context(), flagstore.ContentKey(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"flags": flags})
}

func (srv *Server) HandleStanding(c echo.Context) error {
	d := srv.standing.Check(c.Request().Context(), c.Param("id"))
	return c.JSON(http.StatusOK, map[string]any{
		"allowed":   d.Allowed,
		"kind":      d.Kind,
		"reason":    d.Reason,
		"expiresAt": d.ExpiresAt,
	})
}

type warningRequest struct {
	Type          string `json:"type"`
	Reason        string `json:"reason"`
	IssuedBy      string `json:"issuedBy"`
	DurationHours int    `json:"durationHours"`
}

func (srv *Server) HandleIssueWarning(c echo.Context) error {
	var req warningRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	typ := store.WarningType(req.Type)
	switch typ {
	case store.WarningTypeWarning, store.WarningTypeSuspension, store.WarningTypeBanned:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown warning type")
	}
	err := srv.standing.Issue(c.Request().Context(), c.Param("id"), typ, req.Reason, req.IssuedBy,
		time.Duration(req.DurationHours)*time.Hour)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleSweepWarnings(c echo.Context) error {
	swept, err := srv.standing.SweepExpired(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"deactivated": swept})
}

func (srv *Server) HandleDeactivateWarning(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid warning index")
	}
	err = srv.standing.Deactivate(c.Request().Context(), c.Param("id"), idx)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleLogin(c echo.Context) error {
	streak, err := srv.points.RecordLogin(c.Request().Context(), c.Param("id"), time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"streak": streak})
}

type claimRequest struct {
	Cost   int    `json:"cost"`
	Reward string `json:"reward"`
}

func (srv *Server) HandleClaim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	total, err := srv.points.Claim(c.Request().Context(), c.Param("id"), req.Cost, req.Reward)
	if errors.Is(err, points.ErrInsufficientPoints) {
		return echo.NewHTTPError(http.StatusConflict, "insufficient points")
	} else if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"points": total})
}
