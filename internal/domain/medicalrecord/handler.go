package medicalrecord

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/domain/vitals"
	"github.com/klinik/klinik/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole(auth.RoleNurse, auth.RoleDoctor)
	api.GET("/patients/:id/medical-records", h.ListByPatient, clinical)
	api.GET("/patients/:id/medical-records/latest", h.Latest, clinical)

	nurse := api.Group("/medical-records", clinical)
	nurse.POST("", h.Create)
	nurse.GET("/:id", h.Get)
	nurse.PUT("/:id/vitals", h.UpdateVitals)

	doctor := api.Group("/medical-records", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/:id/finalize", h.Finalize)

	admin := api.Group("/medical-records", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/:id/archive", h.Archive)
}

// validationResponse lets the form show each message next to its field.
type validationResponse struct {
	Message string      `json:"message"`
	Errors  FieldErrors `json:"errors"`
}

func respondError(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, validationResponse{Message: ErrValidation.Error(), Errors: ve.Fields})
	case errors.Is(err, vitals.ErrOutOfRange):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrRecordLocked), errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// createRequest carries the nurse intake and, when the doctor records the
// whole visit at once, the finalization.
type createRequest struct {
	PatientID    uuid.UUID           `json:"patient_id"`
	QueueEntryID *uuid.UUID          `json:"queue_entry_id,omitempty"`
	Intake       NurseIntake         `json:"intake"`
	Finalization *DoctorFinalization `json:"finalization,omitempty"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	ctx := c.Request().Context()
	by := auth.UserIDFromContext(ctx)

	var (
		r   *MedicalRecord
		err error
	)
	if req.Finalization != nil {
		r, err = h.svc.CreateCompleted(ctx, req.PatientID, req.QueueEntryID, req.Intake, *req.Finalization, by)
	} else {
		r, err = h.svc.CreateFromIntake(ctx, req.PatientID, req.QueueEntryID, req.Intake, by)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var fin DoctorFinalization
	if err := c.Bind(&fin); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.Finalize(ctx, id, fin, auth.UserIDFromContext(ctx))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Archive(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Archive(ctx, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var vs vitals.VitalSigns
	if err := c.Bind(&vs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.UpdateVitals(ctx, id, vs, auth.UserIDFromContext(ctx))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// recordView adds the interpreted vital signs to a record.
type recordView struct {
	*MedicalRecord
	Interpretation vitals.Interpretation `json:"interpretation"`
}

func (h *Handler) Get(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, recordView{MedicalRecord: r, Interpretation: vitals.Interpret(r.VitalSigns)})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Latest(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Latest(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
