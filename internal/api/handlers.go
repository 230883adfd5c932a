package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/domain"
	"github.com/patient-feedback-server/internal/service"
)

// handleHome describes the service entry points.
func (s *Server) handleHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "patient-feedback",
		"routes": []string{
			"/feedback", "/bargraphs", "/piecharts", "/overall_bargraphs", "/manage",
		},
	})
}

// handleFeedbackForm describes the survey fields. Markup is produced
// by the external templating collaborator, not here.
func (s *Server) handleFeedbackForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"view":          "feedback",
		"rating_fields": domain.RatingFields,
		"binary_fields": domain.BinaryFields,
	})
}

// handleFeedbackSubmit runs the submission guard and intake pipeline.
// Success and duplicate both answer with a redirect to the matching
// terminal outcome; only malformed input is an error response.
func (s *Server) handleFeedbackSubmit(c *gin.Context) {
	sessionID, _ := s.cookies.SessionID(c)

	err := s.intake.Submit(c.Request.Context(), sessionID, formValues(c))
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/feedback_thankyou")
	case errors.Is(err, domain.ErrDuplicateSubmission):
		c.Redirect(http.StatusSeeOther, "/feedback_error")
	case domain.IsValidation(err):
		s.validationError(c, err)
	default:
		s.serverError(c, err)
	}
}

// handleThankYou is the successful-submission terminal outcome.
func (s *Server) handleThankYou(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"view":    "feedback_thankyou",
		"message": "Thank you for your feedback.",
	})
}

// handleAlreadySubmitted is the duplicate-submission terminal outcome.
func (s *Server) handleAlreadySubmitted(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"view":    "feedback_error",
		"message": "Feedback has already been submitted for this patient.",
	})
}

// handleBarGraphs serves the streaming-scan distribution report.
func (s *Server) handleBarGraphs(c *gin.Context) {
	report, err := s.aggregate.BarReport(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.renderReport(c, "bargraph", report)
}

// handlePieCharts serves the count-query distribution report.
func (s *Server) handlePieCharts(c *gin.Context) {
	report, err := s.aggregate.PieReport(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.renderReport(c, "piechart", report)
}

// handleOverallBarGraphs serves the ranking view.
func (s *Server) handleOverallBarGraphs(c *gin.Context) {
	report, err := s.aggregate.OverallReport(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.renderReport(c, "overall_bargraph", report)
}

// renderReport hands every series to the chart renderer and answers
// with the artifact references. A renderer failure aborts the whole
// report; no partial chart set is produced.
func (s *Server) renderReport(c *gin.Context, view string, report *service.Report) {
	images := make([]string, 0, len(report.Series))
	for _, series := range report.Series {
		ref, err := s.renderer.Render(c.Request.Context(), report.Kind, series)
		if err != nil {
			s.serverError(c, err)
			return
		}
		images = append(images, ref)
	}

	c.JSON(http.StatusOK, gin.H{
		"view":   view,
		"title":  report.Title,
		"total":  report.Total,
		"images": images,
	})
}

// handleManageForm describes the admin console.
func (s *Server) handleManageForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"view":    "home_manage",
		"actions": []string{"show", "update", "delete"},
	})
}

// handleManage dispatches the admin console form by its action
// discriminator.
func (s *Server) handleManage(c *gin.Context) {
	form := formValues(c)
	switch {
	case hasKey(form, "show"):
		s.manageShow(c, form)
	case hasKey(form, "update"):
		s.manageUpdate(c, form)
	case hasKey(form, "delete"):
		s.manageDelete(c, form)
	default:
		c.JSON(http.StatusOK, gin.H{"view": "manage"})
	}
}

func (s *Server) manageShow(c *gin.Context, form map[string]string) {
	entries, err := s.admin.Search(c.Request.Context(), form)
	if err != nil {
		if domain.IsValidation(err) {
			s.validationError(c, err)
			return
		}
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"view":            "manage",
		"search_criteria": service.Criteria(form),
		"entries":         entries,
	})
}

func (s *Server) manageUpdate(c *gin.Context, form map[string]string) {
	err := s.admin.Update(c.Request.Context(), form)
	switch {
	case err == nil:
		s.manageMessage(c, "Entry with Patient ID "+form["patient_id"]+" successfully updated.")
	case errors.Is(err, domain.ErrNothingToDo):
		s.manageMessage(c, "Invalid operation: Nothing to update.")
	case errors.Is(err, domain.ErrNotFound):
		s.manageMessage(c, "Failed to update entry with Patient ID "+form["patient_id"]+".")
	case domain.IsValidation(err):
		s.validationError(c, err)
	default:
		s.serverError(c, err)
	}
}

func (s *Server) manageDelete(c *gin.Context, form map[string]string) {
	err := s.admin.Delete(c.Request.Context(), form)
	switch {
	case err == nil:
		s.manageMessage(c, "Entry with Patient ID "+form["patient_id"]+" successfully deleted.")
	case errors.Is(err, domain.ErrNothingToDo):
		s.manageMessage(c, "Invalid operation: Nothing to delete.")
	case errors.Is(err, domain.ErrNotFound):
		s.manageMessage(c, "Failed to delete entry with Patient ID "+form["patient_id"]+".")
	case domain.IsValidation(err):
		s.validationError(c, err)
	default:
		s.serverError(c, err)
	}
}

func (s *Server) manageMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"view":    "manage",
		"message": message,
	})
}

func (s *Server) validationError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	errors.As(err, &ve)
	c.JSON(http.StatusBadRequest, gin.H{
		"error": ve,
	})
}

func (s *Server) serverError(c *gin.Context, err error) {
	if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		s.log.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Warn("Request timed out")
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error": "request timeout",
		})
		return
	}

	s.log.WithFields(logrus.Fields{
		"path":  c.FullPath(),
		"error": err,
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "internal server error",
	})
}

// formValues flattens the posted form into a field -> value map,
// taking the first value for repeated keys.
func formValues(c *gin.Context) map[string]string {
	_ = c.Request.ParseForm()
	form := make(map[string]string, len(c.Request.PostForm))
	for field, values := range c.Request.PostForm {
		if len(values) > 0 {
			form[field] = values[0]
		}
	}
	return form
}

// hasKey reports whether the form carries the key at all, even with an
// empty value (submit buttons post empty values).
func hasKey(form map[string]string, key string) bool {
	_, ok := form[key]
	return ok
}
